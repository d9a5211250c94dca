package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func (cs *ConfigTestSuite) SetupTest() {
	cs.dir = cs.T().TempDir()
}

func (cs *ConfigTestSuite) TestMissingFileGivesDefaults() {

	cfg, err := Load(filepath.Join(cs.dir, "missing.yaml"))
	cs.Require().NoError(err)

	cs.Assert().Equal("index_data", cfg.DataDir)
	cs.Assert().Equal(64, cfg.PageCacheFrames)
	cs.Assert().False(cfg.DirectIO)
	cs.Assert().Equal("info", cfg.LogLevel)
	cs.Assert().Equal(":7070", cfg.Server.Addr)
	cs.Assert().Equal("", cfg.Export.TablePrefix)
	cs.Assert().Equal(slog.LevelInfo, cfg.SlogLevel())
}

func (cs *ConfigTestSuite) TestLoadFromFile() {

	path := filepath.Join(cs.dir, "inspector.yaml")
	content := `
data_dir: "/var/lib/trees"
page_cache_frames: 16
direct_io: true
log_level: debug
server:
  addr: ":9000"
export:
  table_prefix: "nightly_"
`
	cs.Require().NoError(os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	cs.Require().NoError(err)

	cs.Assert().Equal("/var/lib/trees", cfg.DataDir)
	cs.Assert().Equal(16, cfg.PageCacheFrames)
	cs.Assert().True(cfg.DirectIO)
	cs.Assert().Equal(slog.LevelDebug, cfg.SlogLevel())
	cs.Assert().Equal(":9000", cfg.Server.Addr)
	cs.Assert().Equal("nightly_", cfg.Export.TablePrefix)
}

func (cs *ConfigTestSuite) TestZeroValuesFallBackToDefaults() {

	path := filepath.Join(cs.dir, "partial.yaml")
	cs.Require().NoError(os.WriteFile(path, []byte("page_cache_frames: 0\nserver:\n  addr: \"\"\n"), 0644))

	cfg, err := Load(path)
	cs.Require().NoError(err)

	cs.Assert().Equal(64, cfg.PageCacheFrames)
	cs.Assert().Equal(":7070", cfg.Server.Addr)
}

func (cs *ConfigTestSuite) TestMalformedFile() {

	path := filepath.Join(cs.dir, "bad.yaml")
	cs.Require().NoError(os.WriteFile(path, []byte("page_cache_frames: [1, 2"), 0644))

	_, err := Load(path)
	cs.Assert().Error(err)
}

func TestConfig(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
