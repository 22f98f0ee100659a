// Package pipeline runs the load, clean, aggregate, match, join, store and
// export stages in order. Each stage returns its output together with its
// own report; the reports are collected into the run diagnostics.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/lehigh-university-libraries/bookjoin/internal/aggregate"
	"github.com/lehigh-university-libraries/bookjoin/internal/clean"
	"github.com/lehigh-university-libraries/bookjoin/internal/config"
	"github.com/lehigh-university-libraries/bookjoin/internal/dataset"
	"github.com/lehigh-university-libraries/bookjoin/internal/export"
	"github.com/lehigh-university-libraries/bookjoin/internal/join"
	"github.com/lehigh-university-libraries/bookjoin/internal/models"
	"github.com/lehigh-university-libraries/bookjoin/internal/report"
	"github.com/lehigh-university-libraries/bookjoin/internal/storage"
	"github.com/lehigh-university-libraries/bookjoin/internal/store"
)

// Result is everything a run produced
type Result struct {
	Master       []models.MasterRecord
	Ratings      []models.AggregatedRating
	Demographics []models.DemographicRating
	Diagnostics  *report.Diagnostics
}

// inputs holds the parsed source tables
type inputs struct {
	catalog        []dataset.CatalogRow
	communityBooks []dataset.CommunityBookRow
	users          []dataset.UserRow
	ratings        []dataset.RatingRow
	reports        []dataset.LoadReport
}

// Run executes the whole pipeline. An invalid configuration is returned
// before any input is read; a structural failure is returned as a
// *StageError and leaves previously written artifacts untouched.
func Run(ctx context.Context, cfg *config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	strategy, err := cfg.MatchStrategy()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	diag := &report.Diagnostics{
		RunID:       uuid.NewString(),
		GeneratedAt: start.UTC().Format(time.RFC3339),
		Config:      runConfig(cfg),
		Cleaning:    map[string]clean.Report{},
	}
	slog.Info("Starting pipeline run", "run_id", diag.RunID, "catalog", cfg.Inputs.Catalog, "output", cfg.Output.Dir)

	in, err := load(cfg)
	if err != nil {
		return nil, stageError(StageLoad, err)
	}
	diag.Inputs = in.reports

	prep := NewPreparer(cfg.IdentifierOptions(), cfg.Canonicalizer())
	cleaner := clean.NewCleaner(cfg.CleanBounds())

	books, rep := cleaner.Books(prep.Books(in.catalog))
	diag.Cleaning["books"] = rep
	communityBooks, rep := cleaner.CommunityBooks(prep.CommunityBooks(in.communityBooks))
	diag.Cleaning["community_books"] = rep
	users, rep := cleaner.Users(prep.Users(in.users))
	diag.Cleaning["users"] = rep
	ratings, rep := cleaner.Ratings(prep.Ratings(in.ratings))
	diag.Cleaning["ratings"] = rep

	aggOpts := cfg.AggregateOptions()
	aggregated, aggReport := aggregate.Ratings(ratings, aggOpts)
	demographics := aggregate.Demographics(ratings, users, aggOpts)
	aggReport.Demographics = len(demographics)
	diag.Aggregation = aggReport

	ix := join.NewIndex(aggregated)
	links, matchReport, err := LinkUnmatched(ctx, strategy, cfg.Thresholds.MatchConfidence, books, ix, communityBooks)
	if err != nil {
		return nil, stageError(StageMatch, err)
	}
	diag.Matching = matchReport
	slog.Info("Fuzzy matching complete",
		"strategy", matchReport.Strategy,
		"queries", matchReport.Queries,
		"candidates", matchReport.Candidates,
		"matched", matchReport.Matched,
		"unresolved", matchReport.Unresolved)

	master, joinReport := join.Join(books, ix, links, cfg.JoinOptions())
	diag.Join = joinReport

	artifacts := storage.New()

	dbPath := cfg.OutputPath(cfg.Output.Database)
	snap := store.Snapshot{Books: books, Ratings: aggregated, Users: users, Demographics: demographics}
	if err := store.Write(ctx, dbPath, snap); err != nil {
		return nil, stageError(StageStore, err)
	}
	artifacts.Set(storage.Artifact{Name: "sqlite", Path: dbPath, Rows: len(books)})

	ageGroups, err := ageGroupInsights(ctx, dbPath)
	if err != nil {
		return nil, stageError(StageStore, err)
	}
	diag.Analysis = report.Analyze(master, ageGroups)
	slog.Info("Analysis complete",
		"hidden_gems", len(diag.HiddenGems),
		"community_favorites", len(diag.CommunityFavorites),
		"catalog_favorites", len(diag.CatalogFavorites),
		"uk_publishers", len(diag.UKPublishers),
		"age_groups", len(ageGroups))

	exporter := export.NewExporter(cfg.Output.Dir, artifacts)
	if err := exporter.Export(ctx, cfg.Output.Formats, master, diag.Analysis); err != nil {
		return nil, stageError(StageExport, err)
	}

	diag.Artifacts = artifacts.GetAll()
	diagPath := cfg.OutputPath(cfg.Output.Diagnostics)
	if err := report.SaveYAML(diagPath, diag); err != nil {
		return nil, stageError(StageDiagnostics, err)
	}

	slog.Info("Pipeline run complete",
		"run_id", diag.RunID,
		"books", len(master),
		"rated", diag.Summary.WithCommunityRating,
		"malformed_rows", diag.MalformedRows(),
		"validation_drops", diag.ValidationDrops(),
		"elapsed_ms", time.Since(start).Milliseconds())

	return &Result{
		Master:       master,
		Ratings:      aggregated,
		Demographics: demographics,
		Diagnostics:  diag,
	}, nil
}

// ageGroupInsights reads the per age group summary back from the database
func ageGroupInsights(ctx context.Context, dbPath string) ([]models.AgeGroupInsight, error) {
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return db.AgeGroupInsights(ctx)
}

func load(cfg *config.Config) (*inputs, error) {
	in := &inputs{}

	slog.Info("Loading catalog dataset", "path", cfg.Inputs.Catalog)
	catalog, rep, err := dataset.NewCatalogLoader(cfg.Inputs.Catalog).Load()
	if err != nil {
		return nil, err
	}
	in.catalog = catalog
	in.reports = append(in.reports, rep)

	community := dataset.NewCommunityLoader(cfg.Inputs.CommunityEncoding)

	slog.Info("Loading community dataset", "dir", cfg.Inputs.CommunityDir, "encoding", cfg.Inputs.CommunityEncoding)
	books, rep, err := community.LoadBooks(cfg.CommunityBooksPath())
	if err != nil {
		return nil, err
	}
	in.communityBooks = books
	in.reports = append(in.reports, rep)

	users, rep, err := community.LoadUsers(cfg.CommunityUsersPath())
	if err != nil {
		return nil, err
	}
	in.users = users
	in.reports = append(in.reports, rep)

	ratings, rep, err := community.LoadRatings(cfg.CommunityRatingsPath())
	if err != nil {
		return nil, err
	}
	in.ratings = ratings
	in.reports = append(in.reports, rep)

	for _, r := range in.reports {
		if r.Malformed > 0 {
			slog.Warn("Skipped malformed rows", "path", r.Path, "count", r.Malformed)
		}
	}
	return in, nil
}

func runConfig(cfg *config.Config) report.RunConfig {
	return report.RunConfig{
		MinRatings:      cfg.Thresholds.MinRatings,
		MatchConfidence: cfg.Thresholds.MatchConfidence,
		MatchStrategy:   cfg.Match.Strategy,
		MatchScorer:     cfg.Match.Scorer,
		Workers:         cfg.Match.Workers,
		CatalogPath:     cfg.Inputs.Catalog,
		CommunityPaths: []string{
			cfg.CommunityBooksPath(),
			cfg.CommunityUsersPath(),
			cfg.CommunityRatingsPath(),
		},
	}
}

