package search

import (
	"reflect"
	"testing"
	"time"

	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

var fixedNow = time.Unix(1_700_000_000, 0)

func newTestCompiler() *Compiler {
	return NewCompiler(func() time.Time { return fixedNow })
}

func TestCompileStatusPriorityPage(t *testing.T) {
	plan, err := newTestCompiler().Compile([]string{"status:OPEN", "priority:5", "-page:2"})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(plan.Conditions) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(plan.Conditions))
	}
	if plan.Page != 2 {
		t.Errorf("expected page 2, got %d", plan.Page)
	}

	where, args := plan.Where()
	if where != "STATUS = ? AND PRIORITY = ?" {
		t.Errorf("unexpected where clause: %s", where)
	}
	if !reflect.DeepEqual(args, []any{"OPEN", 5}) {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestCompileDropsUnknownTokens(t *testing.T) {
	tests := []struct {
		name   string
		tokens []string
	}{
		{"unknown key", []string{"foo:bar"}},
		{"no colon", []string{"status"}},
		{"empty list", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := newTestCompiler().Compile(tt.tokens)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(plan.Conditions) != 0 {
				t.Errorf("expected zero conditions, got %d", len(plan.Conditions))
			}
			if plan.Page != 1 {
				t.Errorf("expected default page 1, got %d", plan.Page)
			}
			where, args := plan.Where()
			if where != "" || args != nil {
				t.Errorf("expected empty where, got %q %v", where, args)
			}
		})
	}
}

func TestCompileEachKey(t *testing.T) {
	tests := []struct {
		token  string
		clause string
		args   []any
	}{
		{"status:closed", "STATUS = ?", []any{"CLOSED"}},
		{"creator:Steve", "CREATOR = ?", []any{"Steve"}},
		{"priority:4", "PRIORITY = ?", []any{4}},
		{"priority:9", "PRIORITY = ?", []any{9}},
		{"priority:0", "PRIORITY = ?", []any{0}},
		{"assignedto:null", "ASSIGNMENT = ?", []any{" "}},
		{"assignedto:Mod", "ASSIGNMENT = ?", []any{"Mod"}},
		{"world:my_world", "(LOCATION LIKE ? ESCAPE '!' AND LOCATION <> ?)", []any{"my!_world%", "NoLocation"}},
		{"time:1w2d", "CREATIONTIME >= ?", []any{fixedNow.Unix() - 777600}},
		{"STATUS:open", "STATUS = ?", []any{"OPEN"}},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			plan, err := newTestCompiler().Compile([]string{tt.token})
			if err != nil {
				t.Fatalf("Compile returned error: %v", err)
			}
			if len(plan.Conditions) != 1 {
				t.Fatalf("expected 1 condition, got %d", len(plan.Conditions))
			}
			where, args := plan.Where()
			if where != tt.clause {
				t.Errorf("expected clause %q, got %q", tt.clause, where)
			}
			if !reflect.DeepEqual(args, tt.args) {
				t.Errorf("expected args %v, got %v", tt.args, args)
			}
		})
	}
}

func TestCompileKeywordsAreAndedPerTerm(t *testing.T) {
	plan, err := newTestCompiler().Compile([]string{"keywords:Grief, 100%,,lava"})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	if len(plan.Conditions) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(plan.Conditions))
	}
	where, args := plan.Where()
	clause := "REPLACE(REPLACE(LOWER(COMMENTS), '/mysqlsep/', ' '), '/mysqlnewline/', ' ') LIKE ? ESCAPE '!'"
	expectedWhere := clause + " AND " + clause + " AND " + clause
	if where != expectedWhere {
		t.Errorf("unexpected where: %s", where)
	}
	if !reflect.DeepEqual(args, []any{"%grief%", "%100!%%", "%lava%"}) {
		t.Errorf("unexpected args: %v", args)
	}
}

func TestCompileKeywordsDropDelimiters(t *testing.T) {
	plan, err := newTestCompiler().Compile([]string{"keywords:/MySQLSep/,a/mysqlnewline/b"})
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	_, args := plan.Where()
	if !reflect.DeepEqual(args, []any{"%a b%"}) {
		t.Errorf("expected args [%%a b%%], got %v", args)
	}
}

func TestCompileKeepsArgsAlignedWithPlaceholders(t *testing.T) {
	tokens := []string{"world:overworld", "status:OPEN", "keywords:a,b", "creator:Alex", "time:1h"}
	plan, err := newTestCompiler().Compile(tokens)
	if err != nil {
		t.Fatalf("Compile returned error: %v", err)
	}
	where, args := plan.Where()

	placeholders := 0
	for _, r := range where {
		if r == '?' {
			placeholders++
		}
	}
	if placeholders != len(args) {
		t.Fatalf("expected %d args for %d placeholders", placeholders, len(args))
	}
	expected := []any{"overworld%", "NoLocation", "OPEN", "%a%", "%b%", "Alex", fixedNow.Unix() - 3600}
	if !reflect.DeepEqual(args, expected) {
		t.Errorf("expected args %v, got %v", expected, args)
	}
}

func TestCompileInvalidInput(t *testing.T) {
	tests := []string{"priority:high", "-page:two", "time:d", "time:99999999999999999999y"}
	for _, token := range tests {
		t.Run(token, func(t *testing.T) {
			_, err := newTestCompiler().Compile([]string{token})
			if !apperrors.IsInvalidInput(err) {
				t.Errorf("expected InvalidInput, got %v", err)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	if got := EscapeLike("50%_off!"); got != "50!%!_off!!" {
		t.Errorf("expected %q, got %q", "50!%!_off!!", got)
	}
}
