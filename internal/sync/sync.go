// Package sync pulls departments and users from DingTalk and reconciles them
// into the directory, departments first.
package sync

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/directory"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/translate"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
	"github.com/sirupsen/logrus"
)

// Provider is the source of departments and users.
type Provider interface {
	ListSubDepartments(ctx context.Context, parentID schema.ID) ([]schema.ProviderDepartment, error)
	GetDepartment(ctx context.Context, id schema.ID) (schema.ProviderDepartment, error)
	ListUsers(ctx context.Context, deptID schema.ID, cursor int64, size int) ([]schema.ProviderUser, int64, bool, error)
}

// Phase selects which part of a run is executed.
type Phase string

const (
	PhaseAll         Phase = "all"
	PhaseDepartments Phase = "departments"
	PhaseUsers       Phase = "users"
)

func ParsePhase(s string) (Phase, error) {
	switch p := Phase(s); p {
	case PhaseAll, PhaseDepartments, PhaseUsers:
		return p, nil
	case "":
		return PhaseAll, nil
	default:
		return "", fmt.Errorf("unknown phase %q: want all, departments or users", s)
	}
}

type Options struct {
	// FetchWorkers bounds concurrent user list fetches. Directory writes are
	// always sequential.
	FetchWorkers int
	// PageSize is passed to the provider's user list. Zero means the
	// provider's default.
	PageSize int
}

// Report counts outcomes of one phase. Skipped counts provider calls that
// failed, Failed counts entities that could not be written.
type Report struct {
	Total    int
	Created  int
	Existing int
	Failed   int
	Skipped  int
}

type RunReport struct {
	RunID       string
	Departments Report
	Users       Report
}

type Syncer struct {
	provider   Provider
	reconciler *directory.Reconciler
	translator *translate.Translator
	opts       Options
	runID      string
	log        *logrus.Entry
}

func New(provider Provider, reconciler *directory.Reconciler, translator *translate.Translator, opts Options) *Syncer {
	if opts.FetchWorkers < 1 {
		opts.FetchWorkers = 1
	}
	runID := uuid.NewString()

	return &Syncer{
		provider:   provider,
		reconciler: reconciler,
		translator: translator,
		opts:       opts,
		runID:      runID,
		log:        tools.Log.WithField("run_id", runID),
	}
}

// Run bootstraps the directory and syncs the selected phases. Only a bootstrap
// failure is returned as an error; per-entity failures are counted in the report.
func (s *Syncer) Run(ctx context.Context, phase Phase) (RunReport, error) {
	start := time.Now()
	report := RunReport{RunID: s.runID}

	if err := s.reconciler.Bootstrap(); err != nil {
		return report, fmt.Errorf("bootstrap directory: %w", err)
	}

	var depts []schema.ProviderDepartment
	switch phase {
	case PhaseUsers:
		var skipped int
		depts, skipped = s.Departments(ctx)
		report.Departments.Skipped = skipped
	default:
		depts, report.Departments = s.SyncDepartments(ctx)
	}

	if phase != PhaseDepartments {
		report.Users = s.SyncUsers(ctx, depts)
	}

	s.log.WithFields(map[string]interface{}{
		"phase":    phase,
		"duration": time.Since(start).String(),
	}).Info("Sync run finished")
	return report, nil
}
