package sync

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/names"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/internal/schema"
	"github.com/matthewdavidson09/dingtalk-ldap-sync/tools"
)

type deptUsers struct {
	dept  schema.ID
	users []schema.ProviderUser
	err   error
}

// FetchUsers pages through the users of one department. On error it returns
// the users read before the failing page.
func (s *Syncer) FetchUsers(ctx context.Context, deptID schema.ID) ([]schema.ProviderUser, error) {
	var (
		all    []schema.ProviderUser
		cursor int64
	)
	for {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		page, next, more, err := s.provider.ListUsers(ctx, deptID, cursor, s.opts.PageSize)
		if err != nil {
			return all, err
		}
		all = append(all, page...)

		if !more {
			return all, nil
		}
		if next == cursor {
			s.log.WithFields(map[string]interface{}{
				"dept_id": deptID,
				"cursor":  cursor,
			}).Warn("User list cursor did not advance, stopping")
			return all, nil
		}
		cursor = next
	}
}

// SyncUsers fetches the users of every department and creates each user once,
// with the union of all departments the user was found in.
func (s *Syncer) SyncUsers(ctx context.Context, depts []schema.ProviderDepartment) Report {
	start := time.Now()
	var report Report

	results := make([]deptUsers, len(depts))
	tools.RunWithWorkers(depts, s.opts.FetchWorkers, func(i int, d schema.ProviderDepartment) {
		users, err := s.FetchUsers(ctx, d.DeptID)
		results[i] = deptUsers{dept: d.DeptID, users: users, err: err}
	})

	for _, r := range results {
		if r.err != nil {
			s.log.WithError(r.err).WithFields(map[string]interface{}{
				"dept_id": r.dept,
				"fetched": len(r.users),
			}).Error("Failed to list department users")
			report.Skipped++
		}
	}

	users := aggregateUsers(results)
	report.Total = len(users)
	s.log.Infof("Syncing %d users...", len(users))

	for _, u := range users {
		if ctx.Err() != nil {
			s.log.WithError(ctx.Err()).Warn("Sync cancelled, remaining users not processed")
			break
		}
		log := s.log.WithFields(map[string]interface{}{
			"userid": u.UserID,
			"name":   u.Name,
		})

		dirUser, err := s.translator.UserToDirectory(u)
		if err != nil {
			log.WithError(err).Error("Failed to translate user")
			report.Failed++
			continue
		}

		created, err := s.reconciler.CreateUser(dirUser)
		switch {
		case errors.Is(err, names.ErrUnsupportedScript):
			log.WithError(err).Warn("Skipping user with non-Han name")
			report.Failed++
		case err != nil:
			log.WithError(err).Error("Failed to create user")
			report.Failed++
		case created:
			report.Created++
		default:
			report.Existing++
		}
	}

	tools.LogSyncSummary("users", report.Total, report.Created, report.Existing, report.Failed)
	s.log.Infof("Finished syncing users in %s", time.Since(start))
	return report
}

// aggregateUsers merges users listed under several departments into one entry
// per userid, in first-seen order. Department IDs are the user's own list
// followed by every department the user was listed under.
func aggregateUsers(results []deptUsers) []schema.ProviderUser {
	index := make(map[schema.ID]int)
	var out []schema.ProviderUser

	for _, r := range results {
		for _, u := range r.users {
			if u.UserID.IsZero() {
				out = append(out, withDepts(u, u.DeptIDList, r.dept))
				continue
			}
			i, ok := index[u.UserID]
			if !ok {
				index[u.UserID] = len(out)
				out = append(out, withDepts(u, u.DeptIDList, r.dept))
				continue
			}
			out[i] = withDepts(out[i], u.DeptIDList, r.dept)
		}
	}
	return out
}

func withDepts(u schema.ProviderUser, more []schema.ID, listedIn schema.ID) schema.ProviderUser {
	ids := slices.Clone(u.DeptIDList)
	for _, id := range append(slices.Clone(more), listedIn) {
		if !id.IsZero() && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	u.DeptIDList = ids
	return u
}
