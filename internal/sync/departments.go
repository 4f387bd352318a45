package sync

import (
	"context"
	"time"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

// Departments walks the provider's tree depth-first from the root: each
// department, then the subtree of each child in the order the provider lists
// them. It returns the departments found and the number of failed provider calls.
func (s *Syncer) Departments(ctx context.Context) ([]schema.ProviderDepartment, int) {
	w := &deptWalk{seen: make(map[schema.ID]bool)}
	s.walk(ctx, w, schema.ProviderDepartment{DeptID: schema.RootID}, false)
	return w.depts, w.skipped
}

type deptWalk struct {
	depts   []schema.ProviderDepartment
	seen    map[schema.ID]bool
	skipped int
}

// walk visits d and its children. listed is true when d came from a sub-department
// listing and can stand in if the detail call fails.
func (s *Syncer) walk(ctx context.Context, w *deptWalk, d schema.ProviderDepartment, listed bool) {
	if ctx.Err() != nil || w.seen[d.DeptID] {
		return
	}
	w.seen[d.DeptID] = true
	log := s.log.WithField("dept_id", d.DeptID)

	detail, err := s.provider.GetDepartment(ctx, d.DeptID)
	switch {
	case err == nil:
		if detail.DeptID.IsZero() {
			detail.DeptID = d.DeptID
		}
		w.depts = append(w.depts, detail)
	case listed:
		log.WithError(err).Warn("Department detail failed, using listing entry")
		w.skipped++
		w.depts = append(w.depts, d)
	default:
		log.WithError(err).Error("Department detail failed, skipping department")
		w.skipped++
	}

	children, err := s.provider.ListSubDepartments(ctx, d.DeptID)
	if err != nil {
		log.WithError(err).Error("Listing sub-departments failed, skipping subtree")
		w.skipped++
		return
	}
	for _, child := range children {
		s.walk(ctx, w, child, true)
	}
}

// SyncDepartments walks the provider's tree and creates each department that
// is not yet in the directory. Parents are always created before children.
func (s *Syncer) SyncDepartments(ctx context.Context) ([]schema.ProviderDepartment, Report) {
	start := time.Now()
	depts, skipped := s.Departments(ctx)
	report := Report{Total: len(depts), Skipped: skipped}

	s.log.Infof("Syncing %d departments...", len(depts))

	for _, d := range depts {
		log := s.log.WithFields(map[string]interface{}{
			"dept_id": d.DeptID,
			"name":    d.Name,
		})

		dirDept, err := s.translator.DepartmentToDirectory(d)
		if err != nil {
			log.WithError(err).Error("Failed to translate department")
			report.Failed++
			continue
		}

		created, err := s.reconciler.CreateDepartment(dirDept)
		switch {
		case err != nil:
			log.WithError(err).Error("Failed to create department")
			report.Failed++
		case created:
			report.Created++
		default:
			report.Existing++
		}
	}

	tools.LogSyncSummary("departments", report.Total, report.Created, report.Existing, report.Failed)
	s.log.Infof("Finished syncing departments in %s", time.Since(start))
	return depts, report
}
