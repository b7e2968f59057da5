package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/cinedex/internal/db"
	"github.com/kailas-cloud/cinedex/internal/domain/search/filter"
)

// Search runs a filtered, sorted, paginated query via FT.SEARCH.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: index name is required", db.ErrQueryRejected)}
	}
	if q.Limit < 0 || q.Offset < 0 {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: offset %d and limit %d must be non-negative",
			db.ErrQueryRejected, q.Offset, q.Limit)}
	}

	args := []string{q.IndexName, buildQuery(q)}

	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}

	if q.SortBy != "" {
		dir := "ASC"
		if q.SortDesc {
			dir = "DESC"
		}
		args = append(args, "SORTBY", q.SortBy, dir)
	}

	args = append(args,
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	cmd := s.b().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "no such index") || isRedisErr(err, "unknown index name") {
			return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("%w: %s", db.ErrIndexNotFound, q.IndexName)}
		}
		return nil, wrapErr(db.OpSearch, err)
	}

	return parseListResult(raw)
}

// --- Result parsing ---

func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}
	if total == 0 {
		return &db.SearchResult{}, nil
	}

	entries := make([]db.SearchEntry, 0, (len(raw)-1)/2)
	// 2-stride: [total, key1, fields1, key2, fields2, ...]
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		entries = append(entries, db.SearchEntry{
			Key:    key,
			Fields: parseFieldPairs(fields),
		})
	}

	return &db.SearchResult{Total: int(total), Entries: entries}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Query building ---

// buildQuery assembles the FT.SEARCH query string: filters first, then the text clause.
// An empty query matches every document.
func buildQuery(q *db.SearchQuery) string {
	parts := make([]string, 0, len(q.Filters)+1)
	for _, f := range q.Filters {
		if c := buildCondition(f.Attribute, f.Condition); c != "" {
			parts = append(parts, c)
		}
	}
	if t := buildText(q.TextFields, q.Text, q.Fuzzy); t != "" {
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return "*"
	}
	return strings.Join(parts, " ")
}

func buildCondition(attr string, cond filter.Condition) string {
	if cond.IsMatch() {
		return buildTagFilter(attr, cond.Match())
	}
	if cond.IsRange() {
		return buildNumericFilter(attr, *cond.Range())
	}
	return ""
}

func buildTagFilter(attr, value string) string {
	escaped := tagEscaper.Replace(value)
	return fmt.Sprintf("@%s:{%s}", attr, escaped)
}

func buildNumericFilter(attr string, r filter.Range) string {
	minBound := "-inf"
	maxBound := "+inf"

	if r.Min() != nil {
		minBound = strconv.FormatFloat(*r.Min(), 'g', -1, 64)
	}
	if r.Max() != nil {
		maxBound = strconv.FormatFloat(*r.Max(), 'g', -1, 64)
	}

	return fmt.Sprintf("@%s:[%s %s]", attr, minBound, maxBound)
}

// buildText matches every term of text against the given attributes.
// Fuzzy terms are wrapped in %...% (Levenshtein distance 1).
func buildText(fields []string, text string, fuzzy bool) string {
	terms := strings.Fields(text)
	if len(terms) == 0 {
		return ""
	}
	for i, t := range terms {
		escaped := escapeQuery(t)
		if fuzzy && len(t) > 3 {
			escaped = "%" + escaped + "%"
		}
		terms[i] = escaped
	}
	body := strings.Join(terms, " ")
	if len(fields) == 0 {
		return "(" + body + ")"
	}
	return fmt.Sprintf("@%s:(%s)", strings.Join(fields, "|"), body)
}

// --- Escaping ---

var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	"|", "\\|",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`:`, `\:`,
	`,`, `\,`,
	`.`, `\.`,
)
