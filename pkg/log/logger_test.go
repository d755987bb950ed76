package log

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"
)

// LoggerTestSuite tests the log package
type LoggerTestSuite struct {
	suite.Suite
	originalLogger zerolog.Logger
	testOutput     *bytes.Buffer
}

// SetupTest runs before each test
func (s *LoggerTestSuite) SetupTest() {
	s.originalLogger = Logger
	s.testOutput = &bytes.Buffer{}
	s.Require().NoError(ConfigureOutput(s.testOutput, "debug", FormatJSON))
}

// TearDownTest runs after each test
func (s *LoggerTestSuite) TearDownTest() {
	Logger = s.originalLogger
}

func (s *LoggerTestSuite) lastEntry() map[string]interface{} {
	lines := strings.Split(strings.TrimSpace(s.testOutput.String()), "\n")
	var entry map[string]interface{}
	s.Require().NoError(json.Unmarshal([]byte(lines[len(lines)-1]), &entry))
	return entry
}

// TestGoroutineID tests the goroutine ID extraction
func (s *LoggerTestSuite) TestGoroutineID() {
	id := goroutineID()
	s.NotEqual(unknownGoroutine, id)
	for _, char := range id {
		s.True(char >= '0' && char <= '9', "goroutine id should be numeric")
	}
	s.Equal(id, goroutineID())
}

// TestLevels tests each helper writes its level and the goroutine id
func (s *LoggerTestSuite) TestLevels() {
	helpers := map[string]func() *zerolog.Event{
		"debug": Debug,
		"info":  Info,
		"warn":  Warn,
		"error": Error,
	}

	for level, helper := range helpers {
		helper().Str("field", level).Msg("message at " + level)
		entry := s.lastEntry()
		s.Equal(level, entry["level"])
		s.Equal("message at "+level, entry["message"])
		s.Equal(level, entry["field"])
		s.Contains(entry, "goid")
	}
}

// TestConfigureLevel tests that lower levels are filtered
func (s *LoggerTestSuite) TestConfigureLevel() {
	s.Require().NoError(ConfigureOutput(s.testOutput, "WARN", FormatJSON))
	Info().Msg("hidden")
	Warn().Msg("shown")

	output := s.testOutput.String()
	s.NotContains(output, "hidden")
	s.Contains(output, "shown")
}

// TestConfigureConsole tests the console format
func (s *LoggerTestSuite) TestConfigureConsole() {
	s.Require().NoError(ConfigureOutput(s.testOutput, "info", FormatConsole))
	Info().Msg("console line")

	output := s.testOutput.String()
	s.Contains(output, "console line")
	s.False(strings.HasPrefix(strings.TrimSpace(output), "{"))
}

// TestConfigureInvalid tests rejected levels and formats
func (s *LoggerTestSuite) TestConfigureInvalid() {
	s.Error(ConfigureOutput(s.testOutput, "loud", FormatJSON))
	s.Error(ConfigureOutput(s.testOutput, "info", "xml"))
}

// TestParseLevel tests the level parser
func (s *LoggerTestSuite) TestParseLevel() {
	level, err := ParseLevel("")
	s.NoError(err)
	s.Equal(zerolog.InfoLevel, level)

	level, err = ParseLevel("Debug")
	s.NoError(err)
	s.Equal(zerolog.DebugLevel, level)
}

// TestSetDebugMode tests switching to debug level
func (s *LoggerTestSuite) TestSetDebugMode() {
	s.Require().NoError(ConfigureOutput(s.testOutput, "error", FormatJSON))
	SetDebugMode()
	s.Equal(zerolog.DebugLevel, Logger.GetLevel())
}

// TestLoggerSuite runs the logger test suite
func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}
