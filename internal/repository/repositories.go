package repository

import (
	"database/sql"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
)

// IsID reports whether id can be a primary key. Anything else would fail the
// uuid cast in Postgres, so lookups treat it as a missing row.
func IsID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

type Repositories struct {
	// Core repositories (pgxpool)
	UserRepo   UserRepository
	PlenumRepo PlenumRepository
	MotionRepo MotionRepository
	GradeRepo  GradeRepository
	RoleRepo   RoleRepository
	PluginRepo PluginRepository

	// Meeting form and reporting repositories (sqlx over sql.DB)
	SpeakerRepo SpeakerRepository
	PeerRepo    PeerRepository
	ReportRepo  ReportRepository
}

func NewRepositories(pool *pgxpool.Pool, db *sql.DB) *Repositories {
	xdb := sqlx.NewDb(db, "pgx")

	return &Repositories{
		// pgxpool repos
		UserRepo:   NewUserRepository(pool),
		PlenumRepo: NewPlenumRepository(pool),
		MotionRepo: NewMotionRepository(pool),
		GradeRepo:  NewGradeRepository(pool),
		RoleRepo:   NewRoleRepository(pool),
		PluginRepo: NewPluginRepository(pool),

		// sqlx repos
		SpeakerRepo: NewSpeakerRepository(xdb),
		PeerRepo:    NewPeerRepository(xdb),
		ReportRepo:  NewReportRepository(xdb),
	}
}
