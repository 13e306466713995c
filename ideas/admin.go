package ideas

import (
	"context"
	"sort"

	"github.com/autom8ter/ideabase"
	"github.com/autom8ter/ideabase/errors"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
)

// CategoryCount is the number of approved ideas in a category
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StatusCount is the number of ideas with a status
type StatusCount struct {
	Status string `json:"status"`
	Count  int    `json:"count"`
}

// Analytics summarizes approved ideas for the admin dashboard
type Analytics struct {
	IdeasByCategory []CategoryCount   `json:"ideasByCategory"`
	IdeasByStatus   []StatusCount     `json:"ideasByStatus"`
	TopCategories   []string          `json:"topCategories"`
	RecentIdeas     []ideabase.Record `json:"recentIdeas"`
}

// SetFeatured marks or unmarks an idea as featured
func (s *Service) SetFeatured(ctx context.Context, id string, featured bool) (ideabase.Record, error) {
	if id == "" {
		return nil, errors.New(errors.Validation, "empty required field: 'id'")
	}
	result, err := exec(ctx, s.db.From(CollectionIdeas).Update(ideabase.Record{
		"is_featured": featured,
		"updated_at":  s.now(),
	}).Eq("id", id), true)
	if err != nil {
		return nil, err
	}
	if result.Data == nil {
		return nil, errors.New(errors.NotFound, "idea not found: %s", id)
	}
	return result.Record(), nil
}

// AdminDelete deletes any idea along with its file records. Deleting a missing idea is not an error.
func (s *Service) AdminDelete(ctx context.Context, id string) error {
	if id == "" {
		return errors.New(errors.Validation, "empty required field: 'id'")
	}
	return s.remove(ctx, id)
}

// Pending returns submitted ideas awaiting review, oldest first, each joined with its owner's profile and files
func (s *Service) Pending(ctx context.Context) ([]ideabase.Record, error) {
	result, err := exec(ctx, s.db.From(CollectionIdeas).
		Select("*").
		Eq("status", StatusSubmitted).
		Order("created_at", ideabase.OrderOptions{Ascending: true}), false)
	if err != nil {
		return nil, err
	}
	pending := records(result)
	if len(pending) == 0 {
		return pending, nil
	}
	var (
		profiles map[string]ideabase.Record
		files    map[string][]ideabase.Record
	)
	egp, ctx := errgroup.WithContext(ctx)
	egp.Go(func() error {
		var err error
		profiles, err = s.profilesByID(ctx, pending)
		return err
	})
	egp.Go(func() error {
		ids := lo.Map(pending, func(r ideabase.Record, _ int) any { return r.ID() })
		result, err := exec(ctx, s.db.From(CollectionFiles).Select("*").In("idea_id", ids...), false)
		if err != nil {
			return err
		}
		files = lo.GroupBy(records(result), func(r ideabase.Record) string { return r.GetString("idea_id") })
		return nil
	})
	if err := egp.Wait(); err != nil {
		return nil, err
	}
	return lo.Map(pending, func(idea ideabase.Record, _ int) ideabase.Record {
		merged := idea.Clone()
		merged["profiles"] = profileOrNil(profiles, idea.GetString("user_id"))
		merged["files"] = lo.Ternary(files[idea.ID()] == nil, []ideabase.Record{}, files[idea.ID()])
		return merged
	}), nil
}

// Analytics summarizes approved ideas by category and status along with the five most recent
func (s *Service) Analytics(ctx context.Context) (*Analytics, error) {
	var approved, recent []ideabase.Record
	egp, gctx := errgroup.WithContext(ctx)
	egp.Go(func() error {
		result, err := exec(gctx, s.db.From(CollectionIdeas).Select("*").Eq("status", StatusApproved), false)
		if err != nil {
			return err
		}
		approved = records(result)
		return nil
	})
	egp.Go(func() error {
		result, err := exec(gctx, s.db.From(CollectionIdeas).
			Select("*").
			Eq("status", StatusApproved).
			Order("created_at").
			Limit(5), false)
		if err != nil {
			return err
		}
		recent = records(result)
		return nil
	})
	if err := egp.Wait(); err != nil {
		return nil, err
	}
	byCategory := lo.MapToSlice(countBy(approved, "category"), func(category string, count int) CategoryCount {
		return CategoryCount{Category: category, Count: count}
	})
	sort.Slice(byCategory, func(i, j int) bool {
		if byCategory[i].Count != byCategory[j].Count {
			return byCategory[i].Count > byCategory[j].Count
		}
		return byCategory[i].Category < byCategory[j].Category
	})
	byStatus := lo.MapToSlice(countBy(approved, "status"), func(status string, count int) StatusCount {
		return StatusCount{Status: status, Count: count}
	})
	sort.Slice(byStatus, func(i, j int) bool {
		return byStatus[i].Status < byStatus[j].Status
	})
	profiles, err := s.profilesByID(ctx, recent)
	if err != nil {
		return nil, err
	}
	top := byCategory
	if len(top) > 5 {
		top = top[:5]
	}
	return &Analytics{
		IdeasByCategory: byCategory,
		IdeasByStatus:   byStatus,
		TopCategories: lo.Map(top, func(c CategoryCount, _ int) string {
			return c.Category
		}),
		RecentIdeas: lo.Map(recent, func(idea ideabase.Record, _ int) ideabase.Record {
			merged := idea.Clone()
			merged["profiles"] = profileOrNil(profiles, idea.GetString("user_id"))
			return merged
		}),
	}, nil
}

// profilesByID loads the profiles owning the ideas keyed by profile id
func (s *Service) profilesByID(ctx context.Context, ideas []ideabase.Record) (map[string]ideabase.Record, error) {
	var userIDs []any
	for _, id := range lo.Uniq(lo.Map(ideas, func(r ideabase.Record, _ int) string { return r.GetString("user_id") })) {
		if id != "" {
			userIDs = append(userIDs, id)
		}
	}
	if len(userIDs) == 0 {
		return map[string]ideabase.Record{}, nil
	}
	result, err := exec(ctx, s.db.From(CollectionProfiles).Select("id, full_name, email").In("id", userIDs...), false)
	if err != nil {
		return nil, err
	}
	return lo.KeyBy(records(result), func(r ideabase.Record) string { return r.ID() }), nil
}

func profileOrNil(profiles map[string]ideabase.Record, userID string) any {
	if p, ok := profiles[userID]; ok {
		return ideabase.Record{"id": p.ID(), "full_name": p["full_name"], "email": p["email"]}
	}
	return nil
}

// countBy counts records by the string value of a field
func countBy(recs []ideabase.Record, field string) map[string]int {
	counts := map[string]int{}
	for _, r := range recs {
		counts[r.GetString(field)]++
	}
	return counts
}
