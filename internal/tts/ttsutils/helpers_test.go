package ttsutils_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/book-expert/tts-handler/internal/tts/ttsutils"
)

// TestStagingRoot_Precedence verifies configured value, then env, then temp dir.
func TestStagingRoot_Precedence(t *testing.T) {
	t.Setenv("TTS_STAGING_DIR", "/env/staging")

	if got := ttsutils.StagingRoot("/configured"); got != "/configured" {
		t.Errorf("Expected configured staging root, got %q", got)
	}

	if got := ttsutils.StagingRoot(""); got != "/env/staging" {
		t.Errorf("Expected env staging root, got %q", got)
	}

	t.Setenv("TTS_STAGING_DIR", "")

	if got := ttsutils.StagingRoot(""); got != os.TempDir() {
		t.Errorf("Expected %q, got %q", os.TempDir(), got)
	}
}

// TestEnsureDir verifies that a directory is created if it doesn't exist.
func TestEnsureDir(t *testing.T) {
	t.Parallel()

	tempDir := t.TempDir()
	testPath := filepath.Join(tempDir, "new", "dir")

	err := ttsutils.EnsureDir(testPath)
	if err != nil {
		t.Fatalf("EnsureDir failed: %v", err)
	}

	_, err = os.Stat(testPath)
	if os.IsNotExist(err) {
		t.Errorf("Directory %q was not created", testPath)
	}

	err = ttsutils.EnsureDir(testPath)
	if err != nil {
		t.Errorf("EnsureDir failed on existing directory: %v", err)
	}
}

// TestEnsureDir_ReportsUnusablePaths verifies that stat failures and plain
// files are reported instead of ignored.
func TestEnsureDir_ReportsUnusablePaths(t *testing.T) {
	t.Parallel()

	filePath := filepath.Join(t.TempDir(), "staging")

	err := os.WriteFile(filePath, []byte("not a dir"), 0o600)
	if err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}

	err = ttsutils.EnsureDir(filePath)
	if !errors.Is(err, ttsutils.ErrNotADirectory) {
		t.Errorf("Expected ErrNotADirectory, got %v", err)
	}

	// Stat through a regular file fails with ENOTDIR, not "does not exist".
	err = ttsutils.EnsureDir(filepath.Join(filePath, "child"))
	if err == nil {
		t.Error("Expected an error for a path below a regular file")
	}
}

// TestFormatDuration verifies duration formatting logic.
func TestFormatDuration(t *testing.T) {
	t.Parallel()

	const (
		halfMinuteInSeconds    = 30.5
		exactMinuteInSeconds   = 60
		minuteAndHalfInSeconds = 90.5
		exactHourInSeconds     = 3600
		hourAndMinuteInSeconds = 3670
	)

	testCases := []struct {
		name     string
		expected string
		seconds  float64
	}{
		{
			name:     "less than a minute",
			seconds:  halfMinuteInSeconds,
			expected: "30.5s",
		},
		{
			name:     "exactly a minute",
			seconds:  exactMinuteInSeconds,
			expected: "1m 0.0s",
		},
		{
			name:     "less than an hour",
			seconds:  minuteAndHalfInSeconds,
			expected: "1m 30.5s",
		},
		{name: "exactly an hour", seconds: exactHourInSeconds, expected: "1h 0m"},
		{
			name:     "more than an hour",
			seconds:  hourAndMinuteInSeconds,
			expected: "1h 1m",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := ttsutils.FormatDuration(testCase.seconds)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

// TestFormatFileSize verifies file size formatting logic.
func TestFormatFileSize(t *testing.T) {
	t.Parallel()

	const (
		bytesTestValue               int64 = 500
		kibibytesTestValue           int64 = 2048
		oneAndHalfMebibytesTestValue int64 = 1572864
		twoGibibytesTestValue        int64 = 2147483648
	)

	testCases := []struct {
		name     string
		expected string
		bytes    int64
	}{
		{name: "bytes", bytes: bytesTestValue, expected: "500 B"},
		{name: "kilobytes", bytes: kibibytesTestValue, expected: "2.0 KB"},
		{
			name:     "megabytes",
			bytes:    oneAndHalfMebibytesTestValue,
			expected: "1.5 MB",
		},
		{name: "gigabytes", bytes: twoGibibytesTestValue, expected: "2.0 GB"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := ttsutils.FormatFileSize(testCase.bytes)
			if result != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, result)
			}
		})
	}
}

// TestIsValidAudioFile verifies audio file extension checks.
func TestIsValidAudioFile(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		filename string
		isValid  bool
	}{
		{"test.wav", true},
		{"test.mp3", true},
		{"test.flac", true},
		{"test.ogg", true},
		{"test.m4a", true},
		{"test.aac", true},
		{"TEST.WAV", true},
		{"test.txt", false},
		{"image.jpg", false},
	}

	for _, testCase := range testCases {
		t.Run(testCase.filename, func(t *testing.T) {
			t.Parallel()

			if result := ttsutils.IsValidAudioFile(testCase.filename); result != testCase.isValid {
				t.Errorf(
					"IsValidAudioFile(%q) = %v; want %v",
					testCase.filename,
					result,
					testCase.isValid,
				)
			}
		})
	}
}

// TestGetFileExtension verifies it returns the extension without the dot.
func TestGetFileExtension(t *testing.T) {
	t.Parallel()

	result := ttsutils.GetFileExtension("archive.tar.gz")
	if result != "gz" {
		t.Errorf("Expected 'gz', got %q", result)
	}
}

// TestSanitizeFilename verifies that invalid characters are removed.
func TestSanitizeFilename(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"no changes", "valid_filename.txt", "valid_filename.txt"},
		{
			"replaces invalid chars",
			"in<va>l:id\"/\\|?*name.txt",
			"in_va_l_id_______name.txt",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			result := ttsutils.SanitizeFilename(testCase.input)
			if result != testCase.expected {
				t.Errorf(
					"Expected sanitized filename %q, got %q",
					testCase.expected,
					result,
				)
			}
		})
	}
}

// TestReferenceKey verifies the {persona_slug}.{extension} naming convention.
func TestReferenceKey(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		slug      string
		extension string
		expected  string
	}{
		{"a.curie", "wav", "a.curie.wav"},
		{"a.curie", ".mp3", "a.curie.mp3"},
		{"../etc/passwd", "wav", ".._etc_passwd.wav"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.slug+testCase.extension, func(t *testing.T) {
			t.Parallel()

			if got := ttsutils.ReferenceKey(testCase.slug, testCase.extension); got != testCase.expected {
				t.Errorf("Expected %q, got %q", testCase.expected, got)
			}
		})
	}
}
