// Package config loads configuration from environment variables and the
// project manifest.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

// manifestName is the project manifest file, looked up in the repository
// root (and the working directory when running outside a checkout). It must
// supply the CI provider's project identifier.
const manifestName = ".prchecks"

// projectSlugPattern is the required vcs-type/org/repo form of the CircleCI
// project identifier, e.g. "gh/acme/widgets".
var projectSlugPattern = regexp.MustCompile(`^[a-z]+/[^/]+/[^/]+$`)

// Config holds everything the reporter needs beyond its CLI flags. The
// PRCHECKS_REPO slug override is read directly by the composition root,
// since it decides where the manifest is searched for in the first place.
type Config struct {
	GitHubToken   string
	CircleToken   string
	CircleProject string // vcs-type/org/repo, from the manifest
	Debug         bool
}

// HasCircleToken reports whether a CI-provider token is configured. The token
// is only required once a CI-linked check turns up, so Load does not insist
// on it.
func (c *Config) HasCircleToken() bool {
	return c.CircleToken != ""
}

// Load reads environment variables and the project manifest from the given
// search paths (repo root first, then the working directory). A missing
// manifest or missing circleci.project field is a hard error carrying
// remediation text, since nothing can be fetched from the CI provider
// without a project identifier.
func Load(searchPaths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(manifestName)
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		if p != "" {
			v.AddConfigPath(p)
		}
	}

	v.SetEnvPrefix("PRCHECKS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, fmt.Errorf("project manifest %s.yaml not found in %s; create it with a circleci.project field (vcs-type/org/repo, e.g. gh/acme/widgets)",
				manifestName, strings.Join(searchPaths, ", "))
		}
		return nil, fmt.Errorf("reading project manifest: %w", err)
	}

	project := v.GetString("circleci.project")
	if project == "" {
		return nil, fmt.Errorf("project manifest %s is missing the circleci.project field (vcs-type/org/repo, e.g. gh/acme/widgets)",
			v.ConfigFileUsed())
	}
	if !projectSlugPattern.MatchString(project) {
		return nil, fmt.Errorf("circleci.project %q is not in vcs-type/org/repo form (e.g. gh/acme/widgets)", project)
	}

	return &Config{
		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		CircleToken:   os.Getenv("CIRCLECI_TOKEN"),
		CircleProject: project,
		Debug:         v.GetBool("debug"),
	}, nil
}
