package sqldb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/patient-registry/internal/model"
	"github.com/jwalitptl/patient-registry/internal/repository"
	"github.com/jwalitptl/patient-registry/pkg/errors"
	"github.com/jwalitptl/patient-registry/pkg/metrics"
)

const patientColumns = `id, first_name, last_name, email, phone, date_of_birth, gender,
	address, emergency_contact_name, emergency_contact_phone, medical_history,
	allergies, medications, insurance_provider, insurance_policy_number,
	created_at, updated_at`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(conn repository.DBProvider, m *metrics.Metrics) repository.PatientRepository {
	return &patientRepository{BaseRepository: NewBaseRepository(conn, m)}
}

// Timestamps come from column defaults, so the row is read back after the
// insert to pick them up.
func (r *patientRepository) Create(ctx context.Context, patient *model.Patient) (err error) {
	defer r.observe("patient_create", time.Now(), &err)

	if patient.ID == uuid.Nil {
		patient.ID = uuid.New()
	}

	query := `
		INSERT INTO patients (
			id, first_name, last_name, email, phone, date_of_birth, gender,
			address, emergency_contact_name, emergency_contact_phone, medical_history,
			allergies, medications, insurance_provider, insurance_policy_number
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, tx.Rebind(query),
			patient.ID,
			patient.FirstName,
			patient.LastName,
			patient.Email,
			patient.Phone,
			patient.DateOfBirth,
			patient.Gender,
			patient.Address,
			patient.EmergencyContactName,
			patient.EmergencyContactPhone,
			patient.MedicalHistory,
			patient.Allergies,
			patient.Medications,
			patient.InsuranceProvider,
			patient.InsurancePolicyNumber,
		); err != nil {
			return err
		}
		return getPatient(ctx, tx, patient, patient.ID)
	})
	if err != nil {
		err = patientError(err)
		if _, ok := errors.As(err); ok {
			return err
		}
		return fmt.Errorf("failed to create patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (_ *model.Patient, err error) {
	defer r.observe("patient_get", time.Now(), &err)

	db, err := r.GetDB()
	if err != nil {
		return nil, err
	}
	var patient model.Patient
	if err = getPatient(ctx, db, &patient, id); err != nil {
		return nil, patientError(err)
	}
	return &patient, nil
}

// The update trigger owns updated_at, so the row is read back inside the same
// transaction.
func (r *patientRepository) Update(ctx context.Context, patient *model.Patient) (err error) {
	defer r.observe("patient_update", time.Now(), &err)

	query := `
		UPDATE patients SET
			first_name = ?, last_name = ?, email = ?, phone = ?, date_of_birth = ?,
			gender = ?, address = ?, emergency_contact_name = ?, emergency_contact_phone = ?,
			medical_history = ?, allergies = ?, medications = ?, insurance_provider = ?,
			insurance_policy_number = ?
		WHERE id = ?
	`
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, tx.Rebind(query),
			patient.FirstName,
			patient.LastName,
			patient.Email,
			patient.Phone,
			patient.DateOfBirth,
			patient.Gender,
			patient.Address,
			patient.EmergencyContactName,
			patient.EmergencyContactPhone,
			patient.MedicalHistory,
			patient.Allergies,
			patient.Medications,
			patient.InsuranceProvider,
			patient.InsurancePolicyNumber,
			patient.ID,
		)
		if err != nil {
			return err
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return errors.NewNotFound("patient", nil)
		}
		return getPatient(ctx, tx, patient, patient.ID)
	})
	if err != nil {
		err = patientError(err)
		if _, ok := errors.As(err); ok {
			return err
		}
		return fmt.Errorf("failed to update patient: %w", err)
	}
	return nil
}

func (r *patientRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer r.observe("patient_delete", time.Now(), &err)

	db, err := r.GetDB()
	if err != nil {
		return err
	}
	query := `DELETE FROM patients WHERE id = ?`
	result, err := db.ExecContext(ctx, db.Rebind(query), id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return errors.NewNotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) List(ctx context.Context) (_ []*model.Patient, err error) {
	defer r.observe("patient_list", time.Now(), &err)

	db, err := r.GetDB()
	if err != nil {
		return nil, err
	}
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY created_at DESC`
	patients := []*model.Patient{}
	if err = db.SelectContext(ctx, &patients, query); err != nil {
		return nil, fmt.Errorf("failed to list patients: %w", err)
	}
	return patients, nil
}

func (r *patientRepository) Stats(ctx context.Context, monthStart, weekStart time.Time) (_ *model.PatientStats, err error) {
	defer r.observe("patient_stats", time.Now(), &err)

	db, err := r.GetDB()
	if err != nil {
		return nil, err
	}
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(CASE WHEN created_at >= ? THEN 1 END) AS this_month,
			COUNT(CASE WHEN created_at >= ? THEN 1 END) AS this_week
		FROM patients
	`
	var stats model.PatientStats
	if err = db.GetContext(ctx, &stats, db.Rebind(query),
		model.NewTimestamp(monthStart),
		model.NewTimestamp(weekStart),
	); err != nil {
		return nil, fmt.Errorf("failed to count patients: %w", err)
	}
	return &stats, nil
}

// queryer is satisfied by both *sqlx.DB and *sqlx.Tx.
type queryer interface {
	sqlx.QueryerContext
	Rebind(string) string
}

func getPatient(ctx context.Context, q queryer, dest *model.Patient, id uuid.UUID) error {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = ?`
	return sqlx.GetContext(ctx, q, dest, q.Rebind(query), id)
}
