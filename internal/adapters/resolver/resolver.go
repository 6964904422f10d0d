// Package resolver produces the milestone taxonomy from the first usable
// source in the chain remote → external file → inline settings → defaults.
//
// Resolve never fails: every source failure is logged and the next source is
// tried, and a panic anywhere in the chain yields the built-in defaults.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/okian/irontrials/internal/domain/taxonomy"
	"github.com/okian/irontrials/pkg/logger"
	"github.com/okian/irontrials/pkg/metrics"
)

// Source names the tier that produced a taxonomy.
type Source string

const (
	SourceRemote      Source = "remote"
	SourceFile        Source = "file"
	SourceFileCreated Source = "file_created"
	SourceInline      Source = "inline"
	SourceDefaults    Source = "defaults"
)

const (
	configDirPerm  = 0o755
	configFilePerm = 0o644
)

// Downloader fetches a document synchronously.
type Downloader interface {
	DownloadRaw(ctx context.Context, url string) (string, bool)
}

// Settings selects and parameterizes the tiers.
type Settings struct {
	UseRemoteConfig bool
	RemoteConfigURL string
	// GroupID is the effective group sent as the groupId query parameter.
	GroupID string

	UseExternalConfig  bool
	ExternalConfigPath string

	// MilestoneLevels is a comma-separated list of integers.
	MilestoneLevels string
}

// Resolver runs the fallback chain.
type Resolver struct {
	downloader Downloader
	homeDir    func() (string, error)
	logger     logger.Logger
}

// New creates a resolver. d may be nil, in which case the remote tier always
// falls through.
func New(d Downloader, opts ...Option) *Resolver {
	r := &Resolver{
		downloader: d,
		homeDir:    os.UserHomeDir,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Get().Named("resolver")
	}
	return r
}

// Resolve returns a non-empty taxonomy and the tier it came from.
func (r *Resolver) Resolve(ctx context.Context, s Settings) (tax *taxonomy.Taxonomy, src Source) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error(ctx, "milestone config resolution panicked, using defaults", logger.Any("panic", p))
			tax, src = taxonomy.Defaults(), SourceDefaults
		}
		if tax.IsEmpty() {
			tax, src = taxonomy.Defaults(), SourceDefaults
		}
		metrics.RecordTaxonomyResolution(string(src), len(tax.LevelMilestones))
		r.logger.Info(ctx, "milestone config resolved",
			logger.String("source", string(src)),
			logger.Int("levels", len(tax.LevelMilestones)),
		)
	}()

	if s.UseRemoteConfig {
		t, err := r.fromRemote(ctx, s)
		if err == nil {
			return t, SourceRemote
		}
		r.logger.Warn(ctx, "remote milestone config unavailable", logger.Error(err))
	}

	if s.UseExternalConfig {
		t, created, err := r.fromFile(ctx, s.ExternalConfigPath)
		switch {
		case err == nil && created:
			return t, SourceFileCreated
		case err == nil:
			return t, SourceFile
		default:
			r.logger.Warn(ctx, "external milestone config unusable", logger.Error(err))
		}
	}

	return r.fromInline(ctx, s.MilestoneLevels), SourceInline
}

// RemoteURL appends the groupId query parameter to base.
func RemoteURL(base, groupID string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "groupId=" + groupID
}

func (r *Resolver) fromRemote(ctx context.Context, s Settings) (*taxonomy.Taxonomy, error) {
	if r.downloader == nil {
		return nil, ErrNoDownloader
	}
	u := RemoteURL(s.RemoteConfigURL, s.GroupID)
	r.logger.Info(ctx, "downloading remote milestone config", logger.String("url", u))

	body, ok := r.downloader.DownloadRaw(ctx, u)
	if !ok || strings.TrimSpace(body) == "" {
		return nil, ErrRemoteUnavailable
	}

	var env taxonomy.Envelope
	if err := json.Unmarshal([]byte(body), &env); err == nil && env.Config != nil {
		r.logger.Info(ctx, "loaded remote milestone config",
			logger.String("group_id", env.GroupID),
			logger.String("version", env.Version),
		)
		return usable(env.Config)
	}

	var bare taxonomy.Taxonomy
	if err := json.Unmarshal([]byte(body), &bare); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return usable(&bare)
}

// fromFile loads the taxonomy at path, creating it from defaults when absent.
func (r *Resolver) fromFile(ctx context.Context, path string) (*taxonomy.Taxonomy, bool, error) {
	path, err := r.expandHome(path)
	if err != nil {
		return nil, false, err
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn(ctx, "external milestone config not found, using defaults", logger.String("path", path))
		if werr := writeDefaults(path); werr != nil {
			r.logger.Warn(ctx, "failed to create default milestone config", logger.String("path", path), logger.Error(werr))
		} else {
			r.logger.Info(ctx, "created default milestone config", logger.String("path", path))
		}
		return taxonomy.Defaults(), true, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", path, err)
	}

	var t taxonomy.Taxonomy
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, false, fmt.Errorf("%w: %s: %w", ErrParse, path, err)
	}
	r.logger.Info(ctx, "loaded external milestone config", logger.String("path", path))
	tax, err := usable(&t)
	return tax, false, err
}

func (r *Resolver) fromInline(ctx context.Context, levels string) *taxonomy.Taxonomy {
	t := taxonomy.Defaults()
	var parsed []int
	for _, token := range strings.Split(levels, ",") {
		token = strings.TrimSpace(token)
		n, err := strconv.Atoi(token)
		if err != nil {
			r.logger.Warn(ctx, "invalid level in milestone settings", logger.String("token", token))
			continue
		}
		parsed = append(parsed, n)
	}
	if len(parsed) > 0 {
		t.LevelMilestones = parsed
	}
	return t.Normalize()
}

func (r *Resolver) expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := r.homeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return home + path[1:], nil
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), configDirPerm); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	raw, err := json.MarshalIndent(taxonomy.Defaults(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode defaults: %w", err)
	}
	if err := os.WriteFile(path, raw, configFilePerm); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func usable(t *taxonomy.Taxonomy) (*taxonomy.Taxonomy, error) {
	t.Normalize()
	if t.IsEmpty() {
		return nil, ErrEmptyTaxonomy
	}
	return t, nil
}
