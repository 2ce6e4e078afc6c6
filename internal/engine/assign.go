package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/grn-bogo/ziasync/internal/zia"
)

// DefaultPagesPerGroup is how many consecutive pages receive the same target
// group before the rotation advances. Empirically tuned, not a protocol
// constant; override via config.
const DefaultPagesPerGroup = 5

// DefaultPageSize matches the vendor's per-page ceiling.
const DefaultPageSize = 400

// Job is one bounded assignment run over a page range for one department.
// Jobs are never checkpointed or resumed; re-running one is safe because the
// per-user mutation is idempotent.
type Job struct {
	// Department filters the users collection. Must name a department in
	// the hosted DB.
	Department string
	// Groups are the target group names, applied in order as pages advance.
	Groups []string
	// StartPage and EndPage bound the walk, inclusive. StartPage defaults
	// to 1; EndPage of 0 walks to the server-declared last page.
	StartPage int
	EndPage   int
	// PageSize is the fetch page size. Defaults to DefaultPageSize.
	PageSize int
}

// Summary reports what one job run did.
type Summary struct {
	RunID   string
	Pages   int
	Updated int
	Skipped int
	Failed  int
}

// Engine assigns users to groups page by page. Per-user update failures are
// contained and counted; only sign-in, validation, and page-fetch errors are
// fatal.
type Engine struct {
	client        *zia.Client
	ref           *zia.Reference
	pagesPerGroup int
	log           *logrus.Entry
}

// NewEngine creates an assignment engine. pagesPerGroup at or below zero
// falls back to DefaultPagesPerGroup.
func NewEngine(client *zia.Client, ref *zia.Reference, pagesPerGroup int, log *logrus.Entry) *Engine {
	if pagesPerGroup <= 0 {
		pagesPerGroup = DefaultPagesPerGroup
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Engine{
		client:        client,
		ref:           ref,
		pagesPerGroup: pagesPerGroup,
		log:           log,
	}
}

// Run drives the job to completion. Validation happens before any mutating
// call: an unknown department or group name aborts the run untouched.
func (e *Engine) Run(ctx context.Context, job Job) (*Summary, error) {
	if job.StartPage < 1 {
		job.StartPage = 1
	}
	if job.PageSize <= 0 {
		job.PageSize = DefaultPageSize
	}
	if len(job.Groups) == 0 {
		return nil, fmt.Errorf("job has no target groups")
	}

	if err := e.ref.LoadDepartments(ctx); err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}
	if err := e.ref.LoadGroups(ctx); err != nil {
		return nil, fmt.Errorf("load groups: %w", err)
	}
	if err := e.ref.ValidateDepartment(job.Department); err != nil {
		return nil, err
	}
	groups, err := e.ref.GroupsByName(job.Groups)
	if err != nil {
		return nil, err
	}

	summary := &Summary{RunID: uuid.NewString()}
	log := e.log.WithFields(logrus.Fields{
		"run_id":     summary.RunID,
		"department": job.Department,
	})
	log.WithFields(logrus.Fields{
		"groups":     job.Groups,
		"start_page": job.StartPage,
		"end_page":   job.EndPage,
		"page_size":  job.PageSize,
	}).Info("assignment job started")

	pages := e.client.Users(job.Department, job.PageSize, job.StartPage, job.EndPage)
	for {
		page, err := pages.Next(ctx)
		if err != nil {
			return summary, err
		}
		if page == nil {
			break
		}

		target := targetGroup(groups, page.Number, e.pagesPerGroup)
		pageLog := log.WithFields(logrus.Fields{
			"page":  page.Number,
			"group": target.Name,
			"users": len(page.Users),
		})
		pageLog.Info("processing page")

		for i := range page.Users {
			user := &page.Users[i]
			e.assignUser(ctx, pageLog, user, target, summary)
		}
		summary.Pages++
	}

	log.WithFields(logrus.Fields{
		"pages":   summary.Pages,
		"updated": summary.Updated,
		"skipped": summary.Skipped,
		"failed":  summary.Failed,
	}).Info("assignment job done")
	return summary, nil
}

// assignUser applies the idempotent add-to-group mutation to one user. Any
// failure is logged with enough context to re-run manually and the job moves
// on.
func (e *Engine) assignUser(ctx context.Context, log *logrus.Entry, user *zia.UserRecord, target zia.Group, summary *Summary) {
	if !user.AddGroup(target) {
		summary.Skipped++
		return
	}

	if err := e.client.UpdateUser(ctx, user); err != nil {
		summary.Failed++
		log.WithFields(logrus.Fields{
			"user_id":   user.ID,
			"user_name": user.Name,
		}).WithError(err).Warn("user update failed, skipping")
		return
	}
	summary.Updated++
}

// targetGroup selects the group for a page: the rotation advances every
// perGroup pages and saturates at the last group rather than wrapping. Keyed
// off the absolute page number so re-running any sub-range reproduces the
// same page-to-group mapping.
func targetGroup(groups []zia.Group, pageNumber, perGroup int) zia.Group {
	idx := (pageNumber - 1) / perGroup
	if idx >= len(groups) {
		idx = len(groups) - 1
	}
	return groups[idx]
}
