package main

import (
	"bytes"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/pkg/errors"
)

func TestWriteResult(t *testing.T) {
	var buf bytes.Buffer
	err := writeResult(&buf, &model.QueryResult{
		Columns: []string{"first_name", "phone"},
		Rows: []map[string]interface{}{
			{"first_name": "Ada", "phone": nil},
			{"first_name": "Grace", "phone": "555-0100"},
		},
		RowCount:        2,
		ExecutionTimeMS: 3,
	})
	require.NoError(t, err)
	assert.Equal(t,
		"first_name  phone\n"+
			"Ada         NULL\n"+
			"Grace       555-0100\n"+
			"(2 rows, 3 ms)\n",
		buf.String())
}

func TestWriteResultWithoutColumns(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeResult(&buf, &model.QueryResult{}))
	assert.Equal(t, "(0 rows, 0 ms)\n", buf.String())
}

func TestWritePatients(t *testing.T) {
	email := "ada@example.com"
	dob := model.Date("1815-12-10")
	p := &model.Patient{FirstName: "Ada", LastName: "Lovelace", Email: &email, DateOfBirth: &dob}
	p.ID = uuid.MustParse("6f1c8a9e-2b1d-4c3e-9f5a-7d2e1b0c4a11")

	var buf bytes.Buffer
	require.NoError(t, writePatients(&buf, []*model.Patient{p}))
	assert.Contains(t, buf.String(), "Ada Lovelace")
	assert.Contains(t, buf.String(), "ada@example.com")
	assert.Contains(t, buf.String(), "1815-12-10")
}

func TestDescribe(t *testing.T) {
	plain := stderrors.New("boom")
	assert.Equal(t, plain, describe(plain))

	err := describe(errors.Validation([]string{"first_name is required", "email must be a valid email"}, nil))
	assert.EqualError(t, err, "validation failed: first_name is required; email must be a valid email")

	assert.EqualError(t, describe(errors.NotFound("patient", plain)), "patient not found")
}
