// File: cmd/apply_test.go
package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BondarenkoCom/applyflow/internal/config"
)

func TestCollectJobURLs(t *testing.T) {
	t.Run("args only, deduplicated in order", func(t *testing.T) {
		urls, err := collectJobURLs([]string{
			"https://www.linkedin.com/jobs/view/1/",
			"https://www.linkedin.com/jobs/view/2/",
			"https://www.linkedin.com/jobs/view/1/",
			"  ",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://www.linkedin.com/jobs/view/1/",
			"https://www.linkedin.com/jobs/view/2/",
		}, urls)
	})

	t.Run("file merged after args, comments skipped", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "jobs.txt")
		require.NoError(t, os.WriteFile(path, []byte(
			"# batch for today\n"+
				"https://www.linkedin.com/jobs/view/2/\n"+
				"\n"+
				"  https://www.linkedin.com/jobs/view/3/  \n",
		), 0o644))

		urls, err := collectJobURLs([]string{"https://www.linkedin.com/jobs/view/1/"}, path)
		require.NoError(t, err)
		assert.Equal(t, []string{
			"https://www.linkedin.com/jobs/view/1/",
			"https://www.linkedin.com/jobs/view/2/",
			"https://www.linkedin.com/jobs/view/3/",
		}, urls)
	})

	t.Run("missing file errors", func(t *testing.T) {
		_, err := collectJobURLs(nil, "/nonexistent/jobs.txt")
		require.Error(t, err)
	})
}

func TestBuildCandidate(t *testing.T) {
	t.Run("profile values win over config", func(t *testing.T) {
		c := buildCandidate(map[string]string{
			"candidate.first_name": "Grace",
			"candidate.last_name":  "Hopper",
			"candidate.phone":      "+1 (555) 010-2030",
			"candidate.email":      "grace@example.com",
		}, config.CandidateConfig{
			Name:  "Ada Lovelace",
			Phone: "999",
			Email: "ada@example.com",
		})

		assert.Equal(t, "Grace", c.FirstName)
		assert.Equal(t, "Hopper", c.LastName)
		assert.Equal(t, "15550102030", c.PhoneNumber)
		assert.Equal(t, "grace@example.com", c.Email)
	})

	t.Run("config name splits into first and rest", func(t *testing.T) {
		c := buildCandidate(nil, config.CandidateConfig{Name: "Ada King Lovelace"})
		assert.Equal(t, "Ada", c.FirstName)
		assert.Equal(t, "King Lovelace", c.LastName)
	})

	t.Run("empty sources yield empty candidate", func(t *testing.T) {
		c := buildCandidate(nil, config.CandidateConfig{})
		assert.Empty(t, c.FirstName)
		assert.Empty(t, c.PhoneNumber)
	})
}

func TestPhoneDigits(t *testing.T) {
	assert.Equal(t, "84123456789", phoneDigits("+84 123 456-789"))
	assert.Equal(t, "", phoneDigits("ext."))
}

func TestPaceJitter(t *testing.T) {
	assert.Zero(t, paceJitter(0))
	assert.Zero(t, paceJitter(-time.Second))
	for i := 0; i < 20; i++ {
		j := paceJitter(time.Second)
		assert.GreaterOrEqual(t, j, time.Duration(0))
		assert.Less(t, j, time.Second)
	}
}

func TestAttemptLogPath(t *testing.T) {
	cfg := &config.Config{}
	cfg.Bank.Path = "/data/applyflow/applyflow.db"
	assert.Equal(t, "/data/applyflow/attempts.db", attemptLogPath(cfg))

	cfg.Bank.Path = ""
	assert.Equal(t, "attempts.db", attemptLogPath(cfg))
}
