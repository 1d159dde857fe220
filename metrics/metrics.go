package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var defaultMillisecondsDistribution = view.Distribution(
	0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8, 10, 13, 16, 20, 25, 30, 40,
	50, 65, 80, 100, 130, 160, 200, 250, 300, 400, 500, 650, 800, 1000, 2000, 3000,
	4000, 5000, 7500, 10000, 20000, 50000, 100000,
)

var attemptsDistribution = view.Distribution(1, 2, 3, 4, 5, 8, 10)

var (
	Endpoint, _ = tag.NewKey("endpoint")
	Node, _     = tag.NewKey("node")
)

var (
	WardenInfo = stats.Int64("info", "Arbitrary counter to tag warden info", stats.UnitDimensionless)

	VerifierFetchAttempts = stats.Int64(
		"verifier/fetch_attempts",
		"Fetch attempts per blob verification",
		stats.UnitDimensionless,
	)
	VerifierChecksumMismatch = stats.Int64(
		"verifier/checksum_mismatch",
		"Count of checksum mismatches",
		stats.UnitDimensionless,
	)
	ExpiryRenewals = stats.Int64(
		"expiry/renewals",
		"Count of successful storage renewals",
		stats.UnitDimensionless,
	)
	ExpiryRenewalSkips = stats.Int64(
		"expiry/renewal_skips",
		"Count of renewal batches skipped for quota pressure",
		stats.UnitDimensionless,
	)
	APIRequestDuration = stats.Float64(
		"api/request_duration_ms",
		"Duration of API requests",
		stats.UnitMilliseconds,
	)
)

var (
	InfoView = &view.View{
		Name:        "info",
		Description: "warden information",
		Measure:     WardenInfo,
		Aggregation: view.LastValue(),
	}

	FetchAttemptsView = &view.View{
		Name:        "fetch_attempts",
		Measure:     VerifierFetchAttempts,
		Aggregation: attemptsDistribution,
	}

	ChecksumMismatchView = &view.View{
		Name:        "checksum_mismatch",
		Measure:     VerifierChecksumMismatch,
		Aggregation: view.Count(),
	}

	RenewalsView = &view.View{
		Name:        "renewals",
		Measure:     ExpiryRenewals,
		Aggregation: view.Count(),
	}

	RenewalSkipsView = &view.View{
		Name:        "renewal_skips",
		Measure:     ExpiryRenewalSkips,
		Aggregation: view.Count(),
	}

	APIRequestDurationView = &view.View{
		Name:        "api_request_duration",
		Measure:     APIRequestDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Endpoint},
	}
)

var WardenViews = []*view.View{
	InfoView,
	FetchAttemptsView,
	ChecksumMismatchView,
	RenewalsView,
	RenewalSkipsView,
	APIRequestDurationView,
}

func New(ctx context.Context, mutators ...tag.Mutator) (context.Context, error) {
	return tag.New(ctx, mutators...)
}

func Upsert(k tag.Key, v string) tag.Mutator {
	return tag.Upsert(k, v)
}

func SinceInMilliseconds(start time.Time) float64 {
	return float64(time.Since(start).Nanoseconds()) / 1e6
}

// Timer starts a timer for the measure and returns the stop func recording
// the elapsed duration.
func Timer(ctx context.Context, m *stats.Float64Measure, since func(time.Time) float64) func() {
	start := time.Now()
	return func() {
		stats.Record(ctx, m.M(since(start)))
	}
}
