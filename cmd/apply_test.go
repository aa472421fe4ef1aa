package cmd

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/easyapply-cli/api/schemas"
	"github.com/xkilldash9x/easyapply-cli/internal/config"
)

type capturedApply struct {
	cfg  *config.Config
	urls []string
}

func stubRunApply(t *testing.T) *capturedApply {
	t.Helper()
	got := &capturedApply{}
	original := runApplyFn
	runApplyFn = func(_ context.Context, cfg *config.Config, urls []string, _ io.Writer, _ *zap.Logger) error {
		got.cfg = cfg
		got.urls = urls
		return nil
	}
	t.Cleanup(func() { runApplyFn = original })
	return got
}

func TestApplyCmd_FlagOverrides(t *testing.T) {
	tests := []struct {
		name         string
		extraConfig  string
		env          map[string]string
		args         []string
		wantLimit    int
		wantHeadless bool
		wantJobsFile string
	}{
		{
			name:      "defaults",
			wantLimit: 0,
		},
		{
			name:         "config file values",
			extraConfig:  "jobs:\n  limit: 4\nbrowser:\n  headless: true\n",
			wantLimit:    4,
			wantHeadless: true,
		},
		{
			name:        "environment beats config file",
			extraConfig: "jobs:\n  limit: 4\n",
			env:         map[string]string{"EASYAPPLY_JOBS_LIMIT": "6"},
			wantLimit:   6,
		},
		{
			name:         "flags beat everything",
			extraConfig:  "jobs:\n  limit: 4\n",
			env:          map[string]string{"EASYAPPLY_JOBS_LIMIT": "6"},
			args:         []string{"--limit", "2", "--headless", "--jobs-file", "/tmp/jobs.yaml"},
			wantLimit:    2,
			wantHeadless: true,
			wantJobsFile: "/tmp/jobs.yaml",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.extraConfig)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			got := stubRunApply(t)

			args := append([]string{"--config", env.configPath, "apply"}, tt.args...)
			args = append(args, "https://www.linkedin.com/jobs/view/42/")
			_, err := execute(t, "", args...)
			require.NoError(t, err)

			require.NotNil(t, got.cfg)
			assert.Equal(t, tt.wantLimit, got.cfg.Jobs().Limit)
			assert.Equal(t, tt.wantHeadless, got.cfg.Browser().Headless)
			assert.Equal(t, tt.wantJobsFile, got.cfg.Jobs().File)
			assert.Equal(t, []string{"https://www.linkedin.com/jobs/view/42/"}, got.urls)
		})
	}
}

func TestCollectJobs(t *testing.T) {
	env := newTestEnv(t, "")
	jobsFile := env.path("jobs.yaml")
	require.NoError(t, os.WriteFile(jobsFile, []byte(`
- id: "1"
  link: https://www.linkedin.com/jobs/view/1/
  title: SRE
  company: Acme
`), 0o644))

	t.Run("file and urls are merged without duplicates", func(t *testing.T) {
		list, err := collectJobs(jobsFile, []string{
			"https://www.linkedin.com/jobs/view/1/",
			"https://www.linkedin.com/jobs/view/2/",
		})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, schemas.Job{ID: "1", Link: "https://www.linkedin.com/jobs/view/1/", Title: "SRE", Company: "Acme"}, list[0])
		assert.Equal(t, "2", list[1].ID)
	})

	t.Run("nothing to do", func(t *testing.T) {
		_, err := collectJobs("", nil)
		assert.ErrorIs(t, err, errNoJobs)
	})

	t.Run("bad url", func(t *testing.T) {
		_, err := collectJobs("", []string{"https://example.com/careers"})
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := collectJobs(env.path("nope.yaml"), nil)
		assert.Error(t, err)
	})
}

func TestLoadProfile(t *testing.T) {
	logger := zaptest.NewLogger(t)
	env := newTestEnv(t, "")

	p, err := loadProfile(env.path("profile.yaml"), logger)
	require.NoError(t, err, "a missing profile is not an error")
	assert.Nil(t, p)

	require.NoError(t, os.WriteFile(env.path("profile.yaml"), []byte("availability:\n  notice_period: 1 month\n"), 0o644))
	p, err = loadProfile(env.path("profile.yaml"), logger)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "1 month", p.Availability.NoticePeriod)

	require.NoError(t, os.WriteFile(env.path("profile.yaml"), []byte("availability: [\n"), 0o644))
	_, err = loadProfile(env.path("profile.yaml"), logger)
	assert.Error(t, err)
}

func TestRunApply_FailsFastWithoutJobs(t *testing.T) {
	cfg := config.NewDefaultConfig()
	err := runApply(context.Background(), cfg, nil, io.Discard, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, errNoJobs)
}
