package cli

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/zurustar/scanreel/pkg/reel"
)

func TestParseArgs_ValidArgs(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected Config
	}{
		{
			name: "デフォルト設定",
			args: []string{},
			expected: Config{
				FPS:      reel.DefaultFPS,
				Pattern:  reel.DefaultPattern,
				Width:    DefaultWidth,
				Height:   DefaultHeight,
				LogLevel: "info",
				Language: DefaultLanguage,
			},
		},
		{
			name: "ディレクトリ指定",
			args: []string{"/path/to/frames"},
			expected: Config{
				FramesDir: "/path/to/frames",
				FPS:       reel.DefaultFPS,
				Pattern:   reel.DefaultPattern,
				Width:     DefaultWidth,
				Height:    DefaultHeight,
				LogLevel:  "info",
				Language:  DefaultLanguage,
			},
		},
		{
			name: "タイムアウト指定（短縮形）",
			args: []string{"-t", "5"},
			expected: Config{
				FPS:      reel.DefaultFPS,
				Pattern:  reel.DefaultPattern,
				Width:    DefaultWidth,
				Height:   DefaultHeight,
				Timeout:  5 * time.Second,
				LogLevel: "info",
				Language: DefaultLanguage,
			},
		},
		{
			name: "再生パラメータ",
			args: []string{"--fps", "24", "--frames", "30", "--pattern", "img_%04d.png", "--seed", "42"},
			expected: Config{
				Frames:   30,
				FPS:      24,
				Pattern:  "img_%04d.png",
				Seed:     42,
				Width:    DefaultWidth,
				Height:   DefaultHeight,
				LogLevel: "info",
				Language: DefaultLanguage,
			},
		},
		{
			name: "ヘッドレス出力",
			args: []string{"--headless", "--synthetic", "--size", "320x200", "-o", "out", "--loops", "2"},
			expected: Config{
				FPS:       reel.DefaultFPS,
				Pattern:   reel.DefaultPattern,
				Synthetic: true,
				Width:     320,
				Height:    200,
				OutDir:    "out",
				Loops:     2,
				LogLevel:  "info",
				Language:  DefaultLanguage,
				Headless:  true,
			},
		},
		{
			name: "URL指定",
			args: []string{"--url", "https://cdn.example.com/intro/"},
			expected: Config{
				URL:      "https://cdn.example.com/intro/",
				FPS:      reel.DefaultFPS,
				Pattern:  reel.DefaultPattern,
				Width:    DefaultWidth,
				Height:   DefaultHeight,
				LogLevel: "info",
				Language: DefaultLanguage,
			},
		},
		{
			name: "位置引数が最初（順序に関係なく動作）",
			args: []string{"./frames", "--timeout", "10", "--headless", "-l", "debug"},
			expected: Config{
				FramesDir: "./frames",
				FPS:       reel.DefaultFPS,
				Pattern:   reel.DefaultPattern,
				Width:     DefaultWidth,
				Height:    DefaultHeight,
				Timeout:   10 * time.Second,
				LogLevel:  "debug",
				Language:  DefaultLanguage,
				Headless:  true,
			},
		},
		{
			name: "値を=で指定",
			args: []string{"-fps=6", "./frames"},
			expected: Config{
				FramesDir: "./frames",
				FPS:       6,
				Pattern:   reel.DefaultPattern,
				Width:     DefaultWidth,
				Height:    DefaultHeight,
				LogLevel:  "info",
				Language:  DefaultLanguage,
			},
		},
		{
			name: "トレースとラベル言語",
			args: []string{"--trace", "--lang", "de", "--synthetic"},
			expected: Config{
				FPS:       reel.DefaultFPS,
				Pattern:   reel.DefaultPattern,
				Synthetic: true,
				Width:     DefaultWidth,
				Height:    DefaultHeight,
				LogLevel:  "info",
				Language:  "de",
				Trace:     true,
			},
		},
		{
			name: "ヘルプ表示（短縮形）",
			args: []string{"-h"},
			expected: Config{
				FPS:      reel.DefaultFPS,
				Pattern:  reel.DefaultPattern,
				Width:    DefaultWidth,
				Height:   DefaultHeight,
				LogLevel: "info",
				Language: DefaultLanguage,
				ShowHelp: true,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := ParseArgs(tt.args)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			got := *config
			got.set = nil
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("ParseArgs(%v)\n got  %+v\n want %+v", tt.args, got, tt.expected)
			}
		})
	}
}

func TestParseArgs_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{
			name: "負のタイムアウト",
			args: []string{"--timeout", "-10"},
		},
		{
			name: "無効なログレベル",
			args: []string{"--log-level", "invalid"},
		},
		{
			name: "無効なサイズ",
			args: []string{"--size", "640"},
		},
		{
			name: "ゼロサイズ",
			args: []string{"--size", "0x480"},
		},
		{
			name: "負のフレーム数",
			args: []string{"--frames", "-1"},
		},
		{
			name: "負のループ数",
			args: []string{"--loops", "-2"},
		},
		{
			name: "無効な言語タグ",
			args: []string{"--lang", "not a tag"},
		},
		{
			name: "未知のフラグ",
			args: []string{"--bogus"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestParseArgs_ConflictingSources(t *testing.T) {
	_, err := ParseArgs([]string{"./frames", "--synthetic"})
	if !errors.Is(err, ErrConflictingSources) {
		t.Errorf("expected ErrConflictingSources, got %v", err)
	}
	_, err = ParseArgs([]string{"--url", "http://localhost/", "--synthetic"})
	if !errors.Is(err, ErrConflictingSources) {
		t.Errorf("expected ErrConflictingSources, got %v", err)
	}
}

func TestParseArgs_EnvFallbacks(t *testing.T) {
	t.Setenv("HEADLESS", "true")
	t.Setenv("TIMEOUT", "7")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("SCANREEL_FPS", "8.5")

	config, err := ParseArgs(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !config.Headless || config.Timeout != 7*time.Second || config.LogLevel != "warn" || config.FPS != 8.5 {
		t.Errorf("expected env values to apply, got %+v", config)
	}
	for _, name := range []string{"headless", "timeout", "log-level", "fps"} {
		if !config.IsSet(name) {
			t.Errorf("expected %s to be marked as set", name)
		}
	}
}

func TestParseArgs_FlagsOverrideEnv(t *testing.T) {
	t.Setenv("TIMEOUT", "7")
	t.Setenv("SCANREEL_FPS", "8")

	config, err := ParseArgs([]string{"-t", "3", "--fps", "20"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if config.Timeout != 3*time.Second || config.FPS != 20 {
		t.Errorf("expected flags to win over env, got timeout=%v fps=%v", config.Timeout, config.FPS)
	}
}

func TestParseArgs_InvalidFPSEnv(t *testing.T) {
	t.Setenv("SCANREEL_FPS", "fast")
	if _, err := ParseArgs(nil); err == nil {
		t.Error("expected error for non-numeric SCANREEL_FPS")
	}
}

func TestParseArgs_IsSet(t *testing.T) {
	config, err := ParseArgs([]string{"-o", "dir", "-l", "debug", "--frames", "10"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{"out", "log-level", "frames"} {
		if !config.IsSet(name) {
			t.Errorf("expected %s to be set", name)
		}
	}
	for _, name := range []string{"fps", "pattern", "timeout", "o", "l"} {
		if config.IsSet(name) {
			t.Errorf("expected %s not to be set", name)
		}
	}
}

func TestParseSize(t *testing.T) {
	w, h, err := ParseSize("1280X720")
	if err != nil || w != 1280 || h != 720 {
		t.Errorf("ParseSize(1280X720) = %d, %d, %v", w, h, err)
	}
	for _, bad := range []string{"", "x", "10x", "axb", "-1x5"} {
		if _, _, err := ParseSize(bad); err == nil {
			t.Errorf("ParseSize(%q) expected error", bad)
		}
	}
}

func TestReorderArgs(t *testing.T) {
	got := reorderArgs([]string{"dir", "--headless", "--fps", "24", "-fps=3", "--synthetic"})
	want := []string{"--headless", "--fps", "24", "-fps=3", "--synthetic", "dir"}
	if len(got) != len(want) {
		t.Fatalf("reorderArgs = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("reorderArgs[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
