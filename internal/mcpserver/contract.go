package mcpserver

// TemplateFormatContract describes how registry templates must be written
// so that LLM consumers can propose edits the synchronizer accepts.
const TemplateFormatContract = `# schemasync Template Format Contract

The registry is a YAML file with an ordered list of templates. Each template
binds a file pattern to the canonical table definition that replaces the
first ` + "`Schema::create`" + ` statement of every matching migration.

## Structure

` + "```" + `yaml
templates:
  - pattern: "01_core/*_create_otp_codes_table"   # glob relative to the migrations dir
    body: |
      Schema::create('otp_codes', function (Blueprint $table) {
          $table->id();
          $table->string('phone', 20)->index();
          $table->timestamps();
      });
` + "```" + `

## Rules

1. **pattern** is a glob without the file extension (` + "`.php`" + ` is appended).
   ` + "`*`" + ` matches within one path segment; ` + "`.`" + ` is literal.
2. **body** must be exactly one ` + "`Schema::create(...)`" + ` statement, including
   its closing ` + "`});`" + `. Nothing may precede or follow it.
3. Delimiters must balance. Nested lists such as enum values are fine.
4. Surrounding whitespace is trimmed; the migration keeps its own indentation
   before the statement.
5. Later templates with the same pattern replace earlier ones.
6. Only the first construct of each file is rewritten; the rest of the file
   is never touched.
`
