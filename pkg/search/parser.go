package search

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/leadboard/leadboard-cli/pkg/models"
)

// FieldType represents the card attribute a condition looks at
type FieldType string

const (
	FieldTitle     FieldType = "title"
	FieldIndustry  FieldType = "industry"
	FieldPotential FieldType = "potential"
	FieldStage     FieldType = "stage"
	FieldEnriched  FieldType = "enriched"
	FieldOwner     FieldType = "owner"
	FieldCreated   FieldType = "created"
	FieldContent   FieldType = "content"
)

// Operator represents a search operator
type Operator string

const (
	OperatorEquals      Operator = "="
	OperatorContains    Operator = "contains"
	OperatorGreaterThan Operator = ">"
	OperatorLessThan    Operator = "<"
	OperatorAND         Operator = "AND"
	OperatorOR          Operator = "OR"
)

// Condition represents a single search condition
type Condition struct {
	Field    FieldType
	Operator Operator
	Value    interface{}
	Negate   bool
}

// Query represents a parsed search query
type Query struct {
	Conditions []Condition
	Logic      []Operator // between consecutive conditions
	Raw        string
}

// Parser handles parsing of filter queries
type Parser struct {
	fieldPattern   *regexp.Regexp
	quotedPattern  *regexp.Regexp
	createdPattern *regexp.Regexp
}

// NewParser creates a new filter query parser
func NewParser() *Parser {
	return &Parser{
		fieldPattern:   regexp.MustCompile(`^(\w+):(.+)$`),
		quotedPattern:  regexp.MustCompile(`^"([^"]*)"$`),
		createdPattern: regexp.MustCompile(`^([<>])(\d+)([dwmy])$`),
	}
}

// Parse parses a query string into a Query
func (p *Parser) Parse(input string) (*Query, error) {
	query := &Query{
		Raw:        input,
		Conditions: []Condition{},
		Logic:      []Operator{},
	}
	if err := p.parseTokens(p.tokenize(input), query); err != nil {
		return nil, err
	}
	return query, nil
}

// tokenize splits on whitespace outside double quotes
func (p *Parser) tokenize(input string) []string {
	var tokens []string
	var current strings.Builder
	inQuotes := false

	flush := func() {
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	for _, r := range input {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			current.WriteRune(r)
		case (r == ' ' || r == '\t') && !inQuotes:
			flush()
		default:
			current.WriteRune(r)
		}
	}
	flush()
	return tokens
}

func (p *Parser) parseTokens(tokens []string, query *Query) error {
	explicit := false
	pendingLogic := false

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]

		switch strings.ToUpper(token) {
		case "AND", "OR":
			if len(query.Conditions) == 0 {
				return fmt.Errorf("unexpected operator %s at beginning of query", token)
			}
			if pendingLogic {
				return fmt.Errorf("unexpected operator %s after another operator", token)
			}
			query.Logic = append(query.Logic, Operator(strings.ToUpper(token)))
			explicit = true
			pendingLogic = true
			continue
		}

		negate := false
		if strings.ToUpper(token) == "NOT" {
			i++
			if i >= len(tokens) {
				return fmt.Errorf("NOT operator requires a condition")
			}
			token = tokens[i]
			negate = true
		}

		cond, err := p.parseCondition(token)
		if err != nil {
			return err
		}
		cond.Negate = negate

		// Adjacent conditions are joined with AND
		if len(query.Conditions) > 0 && !pendingLogic {
			query.Logic = append(query.Logic, OperatorAND)
		}
		query.Conditions = append(query.Conditions, *cond)
		pendingLogic = false
	}

	if pendingLogic {
		return fmt.Errorf("query ends with an operator")
	}
	if explicit && len(query.Logic) != len(query.Conditions)-1 {
		return fmt.Errorf("invalid number of logical operators")
	}
	return nil
}

func (p *Parser) parseCondition(token string) (*Condition, error) {
	matches := p.fieldPattern.FindStringSubmatch(token)
	if len(matches) != 3 {
		return &Condition{Field: FieldContent, Operator: OperatorContains, Value: p.unquote(token)}, nil
	}

	field := strings.ToLower(matches[1])
	value := p.unquote(matches[2])
	cond := &Condition{}

	switch field {
	case "title", "name":
		cond.Field, cond.Operator, cond.Value = FieldTitle, OperatorContains, value
	case "industry":
		cond.Field, cond.Operator, cond.Value = FieldIndustry, OperatorContains, value
	case "owner", "seller":
		cond.Field, cond.Operator, cond.Value = FieldOwner, OperatorContains, value
	case "potential":
		cond.Field, cond.Operator, cond.Value = FieldPotential, OperatorEquals, NormalizePotential(value)
	case "stage":
		stage, err := models.ParseStage(value)
		if err != nil {
			return nil, err
		}
		cond.Field, cond.Operator, cond.Value = FieldStage, OperatorEquals, stage
	case "enriched":
		enriched, err := parseYesNo(value)
		if err != nil {
			return nil, fmt.Errorf("enriched: %w", err)
		}
		cond.Field, cond.Operator, cond.Value = FieldEnriched, OperatorEquals, enriched
	case "created":
		age, op, err := p.parseAge(value)
		if err != nil {
			return nil, err
		}
		cond.Field, cond.Operator, cond.Value = FieldCreated, op, age
	default:
		// A colon inside a free word (a URL, a time) is not a field
		cond.Field, cond.Operator, cond.Value = FieldContent, OperatorContains, p.unquote(token)
	}
	return cond, nil
}

// parseAge parses values like ">7d" (older than) or "<30d" (newer than)
func (p *Parser) parseAge(value string) (time.Duration, Operator, error) {
	matches := p.createdPattern.FindStringSubmatch(value)
	if len(matches) != 4 {
		return 0, "", fmt.Errorf("invalid created value %q (expected >7d, <2w, ...)", value)
	}
	n, err := strconv.Atoi(matches[2])
	if err != nil {
		return 0, "", fmt.Errorf("invalid created value %q: %w", value, err)
	}

	day := 24 * time.Hour
	var unit time.Duration
	switch matches[3] {
	case "d":
		unit = day
	case "w":
		unit = 7 * day
	case "m":
		unit = 30 * day
	case "y":
		unit = 365 * day
	}

	op := OperatorGreaterThan
	if matches[1] == "<" {
		op = OperatorLessThan
	}
	return time.Duration(n) * unit, op, nil
}

func (p *Parser) unquote(s string) string {
	if matches := p.quotedPattern.FindStringSubmatch(s); len(matches) == 2 {
		return matches[1]
	}
	return s
}

func parseYesNo(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "y", "true", "1", "sim":
		return true, nil
	case "no", "n", "false", "0", "nao", "não":
		return false, nil
	}
	return false, fmt.Errorf("expected yes or no, got %q", v)
}

// NormalizePotential folds the backend's Portuguese and English potential
// labels onto high, medium and low.
func NormalizePotential(v string) string {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "alto", "alta", "high":
		return "high"
	case "médio", "medio", "média", "media", "medium":
		return "medium"
	case "baixo", "baixa", "low":
		return "low"
	}
	return strings.ToLower(strings.TrimSpace(v))
}
