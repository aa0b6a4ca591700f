package repository

import (
	"context"
	"time"

	"github.com/oksasatya/vowline/internal/domain/entity"
)

// Baseline names an unscoped row count used to tell a vacuous pass
// ("nothing to test") from a verified one.
type Baseline string

const (
	BaselinePrivateProfiles Baseline = "private_profiles"
	BaselinePrivatePhotos   Baseline = "private_photos"
	BaselineSubscriptions   Baseline = "subscriptions"
	BaselineSupplierViews   Baseline = "supplier_views"
)

// SecurityProbe issues the read queries behind the self-checks.
//
// Every method taking a callerID runs as that caller with row-level
// security applied, each in its own read-only transaction. Count runs on
// the service connection and sees every row; it only ever counts rows
// not owned by callerID.
type SecurityProbe interface {
	ForeignProfiles(ctx context.Context, callerID, visibility string, limit int) ([]entity.MemberProfile, error)
	ForeignPhotos(ctx context.Context, callerID, visibility string, limit int) ([]entity.ProfilePhoto, error)
	ForeignSubscriptions(ctx context.Context, callerID string, limit int) ([]entity.Subscription, error)
	ForeignSupplierViews(ctx context.Context, callerID string, limit int) ([]entity.SupplierView, error)

	InterestsSentSince(ctx context.Context, callerID string, since time.Time) (int, error)
	OwnSubscription(ctx context.Context, callerID string) (*entity.Subscription, error)
	RecentMessages(ctx context.Context, callerID string, limit int) ([]entity.Message, error)
	InterestBetween(ctx context.Context, callerID, a, b string) (*entity.Interest, error)
	BlockedByCaller(ctx context.Context, callerID string) ([]entity.BlockedUser, error)
	ProfilesOf(ctx context.Context, callerID string, userIDs []string) ([]entity.MemberProfile, error)
	SearchProfiles(ctx context.Context, callerID string, limit int) (int, error)
	AcceptedInterests(ctx context.Context, callerID string, limit int) ([]entity.Interest, error)
	IsMutualInterest(ctx context.Context, callerID, a, b string) (bool, error)

	Count(ctx context.Context, b Baseline, callerID string) (int, error)
}
