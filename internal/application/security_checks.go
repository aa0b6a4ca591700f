package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oksasatya/vowline/internal/domain/entity"
	repo "github.com/oksasatya/vowline/internal/domain/repository"
)

const (
	leakSampleSize    = 10
	messageSampleSize = 20
	searchPageSize    = 20

	latencyExcellent  = time.Second
	latencyAcceptable = 3 * time.Second
)

var allowedPhotoTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// Outcome is the classification a check reaches when its queries succeed.
type Outcome struct {
	Passed  bool
	Message string
	Vacuous bool
}

func pass(format string, args ...any) Outcome {
	return Outcome{Passed: true, Message: fmt.Sprintf(format, args...)}
}

func vacuous(format string, args ...any) Outcome {
	return Outcome{Passed: true, Vacuous: true, Message: fmt.Sprintf(format, args...)}
}

func fail(format string, args ...any) Outcome {
	return Outcome{Message: fmt.Sprintf(format, args...)}
}

// Check is one entry of the self-check catalogue.
type Check struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`

	run func(s *SecuritySuite, ctx context.Context, callerID string) (Outcome, error)
}

func catalogue() []Check {
	return []Check{
		{Key: "profile_privacy", Name: "Profile Privacy Isolation",
			Description: "Private profiles of other members are not readable",
			run:         (*SecuritySuite).checkProfilePrivacy},
		{Key: "interest_rate_limit", Name: "Interest Rate Limiting",
			Description: "Interests sent in the last 24h stay within the tier allowance",
			run:         (*SecuritySuite).checkInterestRateLimit},
		{Key: "messaging_authorization", Name: "Messaging Authorization",
			Description: "Every conversation is backed by an accepted interest",
			run:         (*SecuritySuite).checkMessagingAuthorization},
		{Key: "photo_visibility", Name: "Photo Visibility",
			Description: "Private photos of other members are not readable",
			run:         (*SecuritySuite).checkPhotoVisibility},
		{Key: "blocked_user_isolation", Name: "Blocked User Isolation",
			Description: "Profiles of blocked members are hidden",
			run:         (*SecuritySuite).checkBlockedIsolation},
		{Key: "subscription_access", Name: "Subscription Access",
			Description: "Only the caller's own subscription is readable",
			run:         (*SecuritySuite).checkSubscriptionAccess},
		{Key: "upload_security", Name: "Upload Security",
			Description: "Uploaded profile photos are images within the size limit",
			run:         (*SecuritySuite).checkUploadSecurity},
		{Key: "query_performance", Name: "Query Performance",
			Description: "Profile search under RLS answers quickly",
			run:         (*SecuritySuite).checkQueryPerformance},
		{Key: "mutual_interest", Name: "Mutual Interest Verification",
			Description: "Accepted interests agree with is_mutual_interest",
			run:         (*SecuritySuite).checkMutualInterest},
		{Key: "view_tracking", Name: "View Tracking",
			Description: "Supplier views are readable only by the supplier owner",
			run:         (*SecuritySuite).checkViewTracking},
	}
}

// isolation classifies a "rows owned by others must not be readable"
// check. leaked rows fail; otherwise the unscoped baseline decides
// whether the pass was verified or vacuous.
func (s *SecuritySuite) isolation(ctx context.Context, callerID string, leaked int, b repo.Baseline, noun string) (Outcome, error) {
	if leaked > 0 {
		return fail("FAILED: %d %s of other members are readable by caller", leaked, noun), nil
	}
	total, err := s.probe.Count(ctx, b, callerID)
	if err != nil {
		return Outcome{}, err
	}
	if total == 0 {
		return vacuous("PASSED: No %s to test, isolation assumed working", noun), nil
	}
	return pass("PASSED: %d %s exist, none readable by caller", total, noun), nil
}

func (s *SecuritySuite) checkProfilePrivacy(ctx context.Context, callerID string) (Outcome, error) {
	leaked, err := s.probe.ForeignProfiles(ctx, callerID, entity.VisibilityPrivate, leakSampleSize)
	if err != nil {
		return Outcome{}, err
	}
	return s.isolation(ctx, callerID, len(leaked), repo.BaselinePrivateProfiles, "private profiles")
}

func (s *SecuritySuite) checkInterestRateLimit(ctx context.Context, callerID string) (Outcome, error) {
	now := s.now()
	sub, err := s.probe.OwnSubscription(ctx, callerID)
	if err != nil {
		return Outcome{}, err
	}
	tier := entity.TierFree
	if sub.Active(now) {
		tier = sub.Tier
	}
	limit := entity.DailyInterestLimit(tier)

	sent, err := s.probe.InterestsSentSince(ctx, callerID, now.Add(-24*time.Hour))
	if err != nil {
		return Outcome{}, err
	}
	if sent > limit {
		return fail("FAILED: %d interests sent in the last 24h exceeds the %s limit of %d", sent, tier, limit), nil
	}
	return pass("PASSED: %d/%d interests sent in the last 24h (%s tier)", sent, limit, tier), nil
}

func (s *SecuritySuite) checkMessagingAuthorization(ctx context.Context, callerID string) (Outcome, error) {
	msgs, err := s.probe.RecentMessages(ctx, callerID, messageSampleSize)
	if err != nil {
		return Outcome{}, err
	}
	if len(msgs) == 0 {
		return vacuous("PASSED: No messages to test, messaging authorization assumed working"), nil
	}

	foreign := 0
	seen := make(map[string]bool)
	var unauthorized []string
	for _, m := range msgs {
		if !m.Involves(callerID) {
			foreign++
			continue
		}
		peer := m.Counterpart(callerID)
		if seen[peer] {
			continue
		}
		seen[peer] = true
		in, err := s.probe.InterestBetween(ctx, callerID, callerID, peer)
		if err != nil {
			return Outcome{}, err
		}
		if in == nil || in.Status != entity.InterestAccepted {
			unauthorized = append(unauthorized, peer)
		}
	}
	if foreign > 0 {
		return fail("FAILED: %d messages between other members are readable by caller", foreign), nil
	}
	if len(unauthorized) > 0 {
		return fail("FAILED: messages exchanged with %d of %d members without an accepted interest", len(unauthorized), len(seen)), nil
	}
	return pass("PASSED: %d messages across %d conversations backed by accepted interests", len(msgs), len(seen)), nil
}

func (s *SecuritySuite) checkPhotoVisibility(ctx context.Context, callerID string) (Outcome, error) {
	leaked, err := s.probe.ForeignPhotos(ctx, callerID, entity.VisibilityPrivate, leakSampleSize)
	if err != nil {
		return Outcome{}, err
	}
	return s.isolation(ctx, callerID, len(leaked), repo.BaselinePrivatePhotos, "private photos")
}

func (s *SecuritySuite) checkBlockedIsolation(ctx context.Context, callerID string) (Outcome, error) {
	blocks, err := s.probe.BlockedByCaller(ctx, callerID)
	if err != nil {
		return Outcome{}, err
	}
	if len(blocks) == 0 {
		return vacuous("PASSED: No blocked members to test, blocked-user isolation assumed working"), nil
	}
	ids := make([]string, 0, len(blocks))
	for _, b := range blocks {
		ids = append(ids, b.BlockedID)
	}
	visible, err := s.probe.ProfilesOf(ctx, callerID, ids)
	if err != nil {
		return Outcome{}, err
	}
	if len(visible) > 0 {
		return fail("FAILED: %d of %d blocked members' profiles are still readable", len(visible), len(ids)), nil
	}
	return pass("PASSED: %d blocked members hidden from caller", len(ids)), nil
}

func (s *SecuritySuite) checkSubscriptionAccess(ctx context.Context, callerID string) (Outcome, error) {
	own, err := s.probe.OwnSubscription(ctx, callerID)
	if err != nil {
		return Outcome{}, err
	}
	tier := "none"
	if own != nil {
		tier = own.Tier
		if !own.Active(s.now()) {
			tier += " (inactive)"
		}
	}
	others, err := s.probe.ForeignSubscriptions(ctx, callerID, leakSampleSize)
	if err != nil {
		return Outcome{}, err
	}
	out, err := s.isolation(ctx, callerID, len(others), repo.BaselineSubscriptions, "subscriptions")
	if err != nil {
		return Outcome{}, err
	}
	out.Message += "; own tier: " + tier
	return out, nil
}

func (s *SecuritySuite) checkUploadSecurity(ctx context.Context, callerID string) (Outcome, error) {
	if s.photos == nil {
		return Outcome{}, fmt.Errorf("photo bucket %q not configured", s.photoBucket)
	}
	objs, err := s.photos.List(ctx, callerID+"/")
	if err != nil {
		return Outcome{}, fmt.Errorf("list %s: %w", s.photoBucket, err)
	}
	if len(objs) == 0 {
		return vacuous("PASSED: No uploads to test in %s", s.photoBucket), nil
	}
	var bad []string
	for _, o := range objs {
		switch {
		case !allowedPhotoTypes[o.ContentType]:
			bad = append(bad, fmt.Sprintf("%s (%s)", o.Name, o.ContentType))
		case s.photoMaxBytes > 0 && o.Size > s.photoMaxBytes:
			bad = append(bad, fmt.Sprintf("%s (%d bytes)", o.Name, o.Size))
		}
	}
	if len(bad) > 0 {
		return fail("FAILED: %d of %d uploads violate upload rules: %s", len(bad), len(objs), strings.Join(bad, ", ")), nil
	}
	return pass("PASSED: %d uploads are images within %d bytes", len(objs), s.photoMaxBytes), nil
}

func (s *SecuritySuite) checkQueryPerformance(ctx context.Context, callerID string) (Outcome, error) {
	start := s.now()
	n, err := s.probe.SearchProfiles(ctx, callerID, searchPageSize)
	if err != nil {
		return Outcome{}, err
	}
	return classifyLatency(s.now().Sub(start), n), nil
}

func classifyLatency(d time.Duration, rows int) Outcome {
	ms := d.Milliseconds()
	switch {
	case d < latencyExcellent:
		return pass("PASSED: excellent, profile search returned %d rows in %dms", rows, ms)
	case d < latencyAcceptable:
		return pass("PASSED: acceptable, profile search returned %d rows in %dms", rows, ms)
	default:
		return fail("FAILED: slow, profile search took %dms", ms)
	}
}

func (s *SecuritySuite) checkMutualInterest(ctx context.Context, callerID string) (Outcome, error) {
	accepted, err := s.probe.AcceptedInterests(ctx, callerID, messageSampleSize)
	if err != nil {
		return Outcome{}, err
	}
	if len(accepted) == 0 {
		return vacuous("PASSED: No accepted interests to test, mutual-interest verification assumed working"), nil
	}
	foreign := 0
	var mismatched []string
	for _, in := range accepted {
		if !in.Involves(callerID) {
			foreign++
			continue
		}
		ok, err := s.probe.IsMutualInterest(ctx, callerID, in.SenderID, in.RecipientID)
		if err != nil {
			return Outcome{}, err
		}
		if !ok {
			mismatched = append(mismatched, in.Counterpart(callerID))
		}
	}
	if foreign > 0 {
		return fail("FAILED: %d accepted interests between other members are readable by caller", foreign), nil
	}
	if len(mismatched) > 0 {
		return fail("FAILED: %d of %d accepted interests are not reported mutual: %s", len(mismatched), len(accepted), strings.Join(mismatched, ", ")), nil
	}
	return pass("PASSED: %d accepted interests verified mutual", len(accepted)), nil
}

func (s *SecuritySuite) checkViewTracking(ctx context.Context, callerID string) (Outcome, error) {
	leaked, err := s.probe.ForeignSupplierViews(ctx, callerID, leakSampleSize)
	if err != nil {
		return Outcome{}, err
	}
	return s.isolation(ctx, callerID, len(leaked), repo.BaselineSupplierViews, "supplier views")
}
