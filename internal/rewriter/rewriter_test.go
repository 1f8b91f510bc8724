package rewriter

import (
	"errors"
	"strings"
	"testing"

	"github.com/starford/schemasync/internal/apperr"
)

const otpBody = `Schema::create('otp_codes', function (Blueprint $table) {
            $table->id();
            $table->string('phone', 20)->index();
            $table->timestamps();
        });`

const enumBody = `Schema::create('user_cultural_profiles', function (Blueprint $table) {
            $table->id();
            $table->enum('religion', [
                'muslim',
                'christian',
                'other'
            ])->nullable();
            $table->json('languages')->nullable();
        });`

const migration = `<?php

use Illuminate\Database\Migrations\Migration;
use Illuminate\Database\Schema\Blueprint;
use Illuminate\Support\Facades\Schema;

return new class extends Migration
{
    /**
     * Run the migrations.
     */
    public function up(): void
    {
        Schema::create('otp_codes', function (Blueprint $table) {
            $table->id();
            $table->timestamps();
        });
    }

    public function down(): void
    {
        Schema::dropIfExists('otp_codes');
    }
};
`

func TestRewrite_ConcreteScenario(t *testing.T) {
	content := "<?php\nSchema::create('otp_codes', function ($t) { $t->id(); });\n"
	got, err := Rewrite(content, otpBody)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if want := "<?php\n" + otpBody + "\n"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestRewrite_Idempotent(t *testing.T) {
	for _, body := range []string{otpBody, enumBody} {
		once, err := Rewrite(migration, body)
		if err != nil {
			t.Fatalf("first Rewrite: %v", err)
		}
		twice, err := Rewrite(once, body)
		if err != nil {
			t.Fatalf("second Rewrite: %v", err)
		}
		if once != twice {
			t.Errorf("rewrite not idempotent:\nonce:  %q\ntwice: %q", once, twice)
		}
	}
}

func TestRewrite_Locality(t *testing.T) {
	span, err := Find(migration)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got, err := Rewrite(migration, enumBody)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !strings.HasPrefix(got, migration[:span.Start]) {
		t.Error("bytes before the construct changed")
	}
	if !strings.HasSuffix(got, migration[span.End:]) {
		t.Error("bytes after the construct changed")
	}
	if got[span.Start:span.Start+len(enumBody)] != enumBody {
		t.Error("body not inserted verbatim")
	}
}

func TestFind_SpanCoversWholeStatement(t *testing.T) {
	span, err := Find(migration)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	got := migration[span.Start:span.End]
	if !strings.HasPrefix(got, "Schema::create('otp_codes'") {
		t.Errorf("span starts at %q", got[:20])
	}
	if !strings.HasSuffix(got, "});") {
		t.Errorf("span ends with %q", got[len(got)-5:])
	}
	if strings.Contains(got, "dropIfExists") {
		t.Error("span leaked into down()")
	}
}

func TestFind_NestedDelimitersDoNotEndConstruct(t *testing.T) {
	content := "<?php\n" + enumBody + "\n// tail\n"
	span, err := Find(content)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got := content[span.Start:span.End]; got != enumBody {
		t.Errorf("span = %q, want the whole enum body", got)
	}
}

func TestFind_IgnoresMarkerInCommentsAndStrings(t *testing.T) {
	content := `<?php
// Schema::create('ghost', function () {});
/* Schema::create('ghost', function () {}); */
# Schema::create('ghost', function () {});
$s = 'Schema::create("ghost", function () {});';
Schema::create('real', function (Blueprint $table) { $table->id(); });
`
	span, err := Find(content)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got := content[span.Start:span.End]; !strings.Contains(got, "'real'") {
		t.Errorf("matched %q", got)
	}
}

func TestFind_DelimitersInsideStringsAreIgnored(t *testing.T) {
	content := `Schema::create('t', function (Blueprint $table) { $table->string('x')->comment('closing }); inside'); });`
	span, err := Find(content)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if span.Start != 0 || span.End != len(content) {
		t.Errorf("span = %+v, want whole input (len %d)", span, len(content))
	}
}

func TestFind_SkipsHeredocAndBacktickStrings(t *testing.T) {
	cases := map[string]string{
		"heredoc":  "Schema::create('t', function ($t) {\n    $t->string('a')->comment(<<<TXT\n    it's a } here\n    TXT);\n});",
		"quoted":   "Schema::create('t', function ($t) {\n    $t->string('a')->comment(<<<\"TXT\"\n    don't ) stop\nTXT\n    );\n});",
		"nowdoc":   "Schema::create('t', function ($t) {\n    $t->string('a')->comment(<<<'TXT'\n    TXTish isn't the end ]\n    TXT);\n});",
		"backtick": "Schema::create('t', function ($t) {\n    $t->string('a')->default(`it's })`);\n});",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			span, err := Find(content)
			if err != nil {
				t.Fatalf("Find: %v", err)
			}
			if span.Start != 0 || span.End != len(content) {
				t.Errorf("span = %+v, want whole input (len %d)", span, len(content))
			}
		})
	}
}

func TestFind_IgnoresMarkerInsideHeredoc(t *testing.T) {
	content := "$doc = <<<EOT\nSchema::create('fake', function ($t) { });\nEOT;\nSchema::create('real', function ($t) { $t->id(); });\n"
	span, err := Find(content)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got := content[span.Start:span.End]; !strings.Contains(got, "'real'") {
		t.Errorf("matched %q", got)
	}
}

func TestFind_ShiftOperatorIsNotHeredoc(t *testing.T) {
	content := "Schema::create('t', function ($t) { $x = $a <<< 2; $t->id(); });"
	span, err := Find(content)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if span.End != len(content) {
		t.Errorf("span = %+v, want whole input (len %d)", span, len(content))
	}
}

func TestFind_SkipsCallsWithoutBlock(t *testing.T) {
	content := "Schema::create('a');\nSchema::create('b', function ($t) { $t->id(); });\n"
	span, err := Find(content)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got := content[span.Start:span.End]; !strings.HasPrefix(got, "Schema::create('b'") {
		t.Errorf("matched %q", got)
	}
}

func TestFind_RequiresIdentifierBoundary(t *testing.T) {
	content := "Schema::createIfMissing('a', function ($t) {});\nMySchema::create('b', function ($t) {});\n"
	if _, err := Find(content); !errors.Is(err, apperr.ErrConstructNotFound) {
		t.Errorf("err = %v, want ErrConstructNotFound", err)
	}
}

func TestFind_FirstConstructOnly(t *testing.T) {
	content := "Schema::create('a', function ($t) { $t->id(); });\nSchema::create('b', function ($t) { $t->id(); });\n"
	got, err := Rewrite(content, otpBody)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	if !strings.Contains(got, "Schema::create('b'") {
		t.Error("second construct should be untouched")
	}
	if strings.Contains(got, "Schema::create('a'") {
		t.Error("first construct should be replaced")
	}
}

func TestRewrite_ConstructNotFound(t *testing.T) {
	_, err := Rewrite("<?php\nreturn [];\n", otpBody)
	if !errors.Is(err, apperr.ErrConstructNotFound) {
		t.Fatalf("err = %v, want ErrConstructNotFound", err)
	}
	if errors.Is(err, apperr.ErrMalformedConstruct) {
		t.Error("missing construct should not be reported as malformed")
	}
}

func TestRewrite_Malformed(t *testing.T) {
	cases := map[string]string{
		"unclosed":     "Schema::create('t', function ($t) { $t->id();\n",
		"mismatched":   "Schema::create('t', function ($t) { $t->id(); ));",
		"no semicolon": "Schema::create('t', function ($t) { $t->id(); })\n",
		"open string":  "Schema::create('t, function ($t) { });",
		"open comment": "Schema::create('t', function ($t) { /* });",
		"open heredoc": "Schema::create('t', function ($t) { $t->comment(<<<TXT\n it's\n}); \n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Rewrite(content, otpBody)
			if !errors.Is(err, apperr.ErrMalformedConstruct) {
				t.Fatalf("err = %v, want ErrMalformedConstruct", err)
			}
			if !errors.Is(err, apperr.ErrConstructNotFound) {
				t.Error("malformed construct should also match ErrConstructNotFound")
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate("\n        " + otpBody + "\n"); err != nil {
		t.Errorf("valid body rejected: %v", err)
	}
	if err := Validate(otpBody + "\n" + otpBody); !errors.Is(err, apperr.ErrInvalidTemplate) {
		t.Errorf("two constructs: err = %v, want ErrInvalidTemplate", err)
	}
	if err := Validate("$table->id();"); !errors.Is(err, apperr.ErrInvalidTemplate) {
		t.Errorf("no construct: err = %v, want ErrInvalidTemplate", err)
	}
}

func TestNew_CustomMarker(t *testing.T) {
	r := New("Schema::table")
	content := "Schema::create('a', function ($t) {});\nSchema::table('a', function ($t) { $t->string('x'); });\n"
	body := "Schema::table('a', function ($t) { $t->string('y'); });"
	got, err := r.Rewrite(content, body)
	if err != nil {
		t.Fatalf("Rewrite: %v", err)
	}
	want := "Schema::create('a', function ($t) {});\n" + body + "\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if New("").Marker() != DefaultMarker {
		t.Error("empty marker should select DefaultMarker")
	}
}
