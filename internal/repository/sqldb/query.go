package sqldb

import (
	"context"
	"time"

	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/internal/repository"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
)

type queryRepository struct {
	BaseRepository
}

// NewQueryRepository runs raw statements for the query console.
func NewQueryRepository(conn repository.DBProvider, m *metrics.Metrics) repository.QueryRepository {
	return &queryRepository{BaseRepository: NewBaseRepository(conn, m)}
}

// Execute runs query exactly as written. Driver errors are returned
// unchanged so the caller can show the database's own message.
func (r *queryRepository) Execute(ctx context.Context, query string) (_ *model.QueryResult, err error) {
	defer r.observe("query_console", time.Now(), &err)

	db, err := r.GetDB()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	if columns == nil {
		columns = []string{}
	}

	result := &model.QueryResult{
		Columns: columns,
		Rows:    []map[string]interface{}{},
	}
	for rows.Next() {
		row := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(row); err != nil {
			return nil, err
		}
		for k, v := range row {
			if b, ok := v.([]byte); ok {
				row[k] = string(b)
			}
		}
		result.Rows = append(result.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.RowCount = len(result.Rows)
	result.ExecutionTimeMS = time.Since(start).Milliseconds()
	return result, nil
}

func (r *queryRepository) Samples() ([]model.SampleQuery, error) {
	db, err := r.GetDB()
	if err != nil {
		return nil, err
	}
	if db.DriverName() == DriverPostgres {
		return postgresSamples, nil
	}
	return sqliteSamples, nil
}

var postgresSamples = []model.SampleQuery{
	{
		Title: "All Patients",
		Query: "SELECT * FROM patients ORDER BY created_at DESC;",
	},
	{
		Title: "Patients by Gender",
		Query: "SELECT gender, COUNT(*) as count FROM patients WHERE gender IS NOT NULL GROUP BY gender;",
	},
	{
		Title: "Recent Registrations",
		Query: "SELECT first_name, last_name, created_at FROM patients WHERE created_at >= CURRENT_DATE - INTERVAL '30 days' ORDER BY created_at DESC;",
	},
	{
		Title: "Patients with Allergies",
		Query: "SELECT first_name, last_name, allergies FROM patients WHERE allergies IS NOT NULL AND allergies != '';",
	},
	{
		Title: "Age Distribution",
		Query: `SELECT
  CASE
    WHEN EXTRACT(YEAR FROM AGE(date_of_birth)) < 18 THEN 'Under 18'
    WHEN EXTRACT(YEAR FROM AGE(date_of_birth)) BETWEEN 18 AND 35 THEN '18-35'
    WHEN EXTRACT(YEAR FROM AGE(date_of_birth)) BETWEEN 36 AND 55 THEN '36-55'
    WHEN EXTRACT(YEAR FROM AGE(date_of_birth)) > 55 THEN 'Over 55'
    ELSE 'Unknown'
  END as age_group,
  COUNT(*) as count
FROM patients
WHERE date_of_birth IS NOT NULL
GROUP BY age_group;`,
	},
	{
		Title: "Table Schema",
		Query: `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_name = 'patients'
ORDER BY ordinal_position;`,
	},
}

var sqliteSamples = []model.SampleQuery{
	{
		Title: "All Patients",
		Query: "SELECT * FROM patients ORDER BY created_at DESC;",
	},
	{
		Title: "Patients by Gender",
		Query: "SELECT gender, COUNT(*) as count FROM patients WHERE gender IS NOT NULL GROUP BY gender;",
	},
	{
		Title: "Recent Registrations",
		Query: "SELECT first_name, last_name, created_at FROM patients WHERE created_at >= strftime('%Y-%m-%dT%H:%M:%fZ', 'now', '-30 days') ORDER BY created_at DESC;",
	},
	{
		Title: "Patients with Allergies",
		Query: "SELECT first_name, last_name, allergies FROM patients WHERE allergies IS NOT NULL AND allergies != '';",
	},
	{
		Title: "Age Distribution",
		Query: `SELECT
  CASE
    WHEN age < 18 THEN 'Under 18'
    WHEN age BETWEEN 18 AND 35 THEN '18-35'
    WHEN age BETWEEN 36 AND 55 THEN '36-55'
    WHEN age > 55 THEN 'Over 55'
    ELSE 'Unknown'
  END as age_group,
  COUNT(*) as count
FROM (
  SELECT CAST(strftime('%Y', 'now') AS INTEGER) - CAST(strftime('%Y', date_of_birth) AS INTEGER)
    - (strftime('%m-%d', 'now') < strftime('%m-%d', date_of_birth)) AS age
  FROM patients
  WHERE date_of_birth IS NOT NULL
)
GROUP BY age_group;`,
	},
	{
		Title: "Table Schema",
		Query: `SELECT name AS column_name, type AS data_type,
  CASE WHEN "notnull" = 1 THEN 'NO' ELSE 'YES' END AS is_nullable
FROM pragma_table_info('patients')
ORDER BY cid;`,
	},
}
