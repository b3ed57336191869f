package search

import (
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/ticketmanager/internal/domain"
	"github.com/spec-kit/ticketmanager/internal/schema"
	apperrors "github.com/spec-kit/ticketmanager/pkg/util/errorutil"
)

// Filter keys understood by the compiler.
const (
	KeyStatus     = "status"
	KeyCreator    = "creator"
	KeyPriority   = "priority"
	KeyAssignedTo = "assignedto"
	KeyWorld      = "world"
	KeyTime       = "time"
	KeyKeywords   = "keywords"
	KeyPage       = "-page"
)

// UnassignedValue is the assignedto value that selects unassigned tickets.
const UnassignedValue = "null"

type bindFunc func(c *Compiler, value string, plan *Plan) error

// filters is the closed set of recognized keys.
var filters = map[string]bindFunc{
	KeyStatus:     bindStatus,
	KeyCreator:    bindCreator,
	KeyPriority:   bindPriority,
	KeyAssignedTo: bindAssignedTo,
	KeyWorld:      bindWorld,
	KeyTime:       bindTime,
	KeyKeywords:   bindKeywords,
	KeyPage:       bindPage,
}

// Compiler turns key:value tokens into a parameterized Plan.
type Compiler struct {
	now func() time.Time
}

// NewCompiler returns a compiler using now for relative time filters.
func NewCompiler(now func() time.Time) *Compiler {
	if now == nil {
		now = time.Now
	}
	return &Compiler{now: now}
}

// Compile parses tokens in order. Tokens without a colon and unknown keys
// are dropped. Malformed numeric values fail with InvalidInput.
func (c *Compiler) Compile(tokens []string) (Plan, error) {
	plan := Plan{Page: 1}
	for _, token := range tokens {
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			continue
		}
		bind, known := filters[strings.ToLower(key)]
		if !known {
			continue
		}
		if err := bind(c, value, &plan); err != nil {
			return Plan{}, err
		}
	}
	return plan, nil
}

func (p *Plan) add(key, clause string, args ...any) {
	p.Conditions = append(p.Conditions, Condition{Key: key, Clause: clause, Args: args})
}

func bindStatus(_ *Compiler, value string, plan *Plan) error {
	plan.add(KeyStatus, schema.ColStatus+" = ?", strings.ToUpper(value))
	return nil
}

func bindCreator(_ *Compiler, value string, plan *Plan) error {
	plan.add(KeyCreator, schema.ColCreator+" = ?", value)
	return nil
}

func bindPriority(_ *Compiler, value string, plan *Plan) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return apperrors.NewInvalidInput("priority must be a number", map[string]any{"value": value})
	}
	plan.add(KeyPriority, schema.ColPriority+" = ?", n)
	return nil
}

func bindAssignedTo(_ *Compiler, value string, plan *Plan) error {
	if strings.EqualFold(value, UnassignedValue) {
		value = schema.NoAssignment
	}
	plan.add(KeyAssignedTo, schema.ColAssignment+" = ?", value)
	return nil
}

func bindWorld(_ *Compiler, value string, plan *Plan) error {
	plan.add(KeyWorld,
		"("+schema.ColLocation+" LIKE ? ESCAPE '!' AND "+schema.ColLocation+" <> ?)",
		EscapeLike(value)+"%", schema.NoLocation)
	return nil
}

func bindTime(c *Compiler, value string, plan *Plan) error {
	seconds, err := ParseDuration(value)
	if err != nil {
		return err
	}
	plan.add(KeyTime, schema.ColCreationTime+" >= ?", c.now().Unix()-seconds)
	return nil
}

// commentText is the comment log lowered with its delimiters blanked, so
// keyword terms only ever match author names and comment bodies.
var commentText = "REPLACE(REPLACE(LOWER(" + schema.ColComments + "), '" +
	strings.ToLower(domain.CommentSeparator) + "', ' '), '" +
	strings.ToLower(domain.CommentTerminator) + "', ' ')"

func bindKeywords(_ *Compiler, value string, plan *Plan) error {
	for _, term := range strings.Split(value, ",") {
		term = strings.ToLower(term)
		for _, token := range []string{domain.CommentSeparator, domain.CommentTerminator} {
			term = strings.ReplaceAll(term, strings.ToLower(token), " ")
		}
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		plan.add(KeyKeywords, commentText+" LIKE ? ESCAPE '!'", "%"+EscapeLike(term)+"%")
	}
	return nil
}

func bindPage(_ *Compiler, value string, plan *Plan) error {
	page, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return apperrors.NewInvalidInput("page must be a number", map[string]any{"value": value})
	}
	plan.Page = page
	return nil
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// EscapeLike escapes LIKE wildcards using '!' as the escape character.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
