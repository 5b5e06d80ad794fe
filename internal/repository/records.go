package repository

import "strings"

type Record struct {
	GameSessionID string  `json:"game_session_id" db:"game_session_id"`
	Username      *string `json:"username" db:"username"`
	Size          int     `json:"size" db:"size"`
	MineCount     int     `json:"mine_count" db:"mine_count"`
	PlaytimeMs    float64 `json:"playtime_ms" db:"playtime_ms"`
}

// DefaultRecordsLimit caps a leaderboard unless RecordsLimit says otherwise.
const DefaultRecordsLimit = 100

type RecordFilter struct {
	username  *string
	size      *int
	mineCount *int
	limit     int
}

type RecordsOption = func(*RecordFilter)

func RecordsForPlayer(username string) RecordsOption {
	return func(f *RecordFilter) {
		f.username = &username
	}
}

func RecordsForParams(size, mineCount int) RecordsOption {
	return func(f *RecordFilter) {
		f.size = &size
		f.mineCount = &mineCount
	}
}

func RecordsLimit(n int) RecordsOption {
	return func(f *RecordFilter) {
		f.limit = n
	}
}

func NewRecordFilter(options ...RecordsOption) RecordFilter {
	f := RecordFilter{limit: DefaultRecordsLimit}
	for _, op := range options {
		op(&f)
	}
	return f
}

func (f RecordFilter) Limit() int {
	return f.limit
}

// WhereClause renders the filter with @name placeholders, which both pgx
// named arguments and sqlite3 named parameters understand.
func (f RecordFilter) WhereClause() (string, map[string]any) {
	clauses := make([]string, 0, 3)
	args := make(map[string]any)
	if f.username != nil {
		clauses = append(clauses, "username = @username")
		args["username"] = *f.username
	}
	if f.size != nil {
		clauses = append(clauses, "size = @size")
		args["size"] = *f.size
	}
	if f.mineCount != nil {
		clauses = append(clauses, "mine_count = @mine_count")
		args["mine_count"] = *f.mineCount
	}
	return strings.Join(clauses, " AND "), args
}
