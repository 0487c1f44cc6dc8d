package config

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/John-Robertt/bookorg/internal/archive"
	"github.com/John-Robertt/bookorg/internal/domain"
)

const (
	// ErrCodeNotFound 表示 --config 显式指定的文件不存在。
	ErrCodeNotFound = "config_not_found"
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

// FileName 是目标目录下自动发现的配置文件名。
const FileName = "bookorg.yaml"

const (
	ColorAuto   = "auto"
	ColorAlways = "always"
	ColorNever  = "never"
)

// CLIArgs 是 CLI 解析后的原始输入。
//
// 布尔开关只能“打开”某项能力：CLI 为 true 时覆盖配置，为 false 时沿用配置。
// Mode 需要区分“未指定”，因此带 ModeSet。
type CLIArgs struct {
	Path       string
	ConfigFile string

	Mode    string
	ModeSet bool

	DryRun  bool
	Auto    bool
	Archive bool
	Verbose bool
	NoColor bool
}

// FileConfig 对应 bookorg.yaml 的解析结构。未知字段视为错误。
type FileConfig struct {
	Mode       string `yaml:"mode"`
	Auto       *bool  `yaml:"auto"`
	CBZ        *bool  `yaml:"cbz"`
	ArchiveExt string `yaml:"archive_ext"`
	ComicInfo  *bool  `yaml:"comic_info"`
	LogLevel   string `yaml:"log_level"`
	Color      string `yaml:"color"`
}

// EffectiveConfig 是合并并规范化后的最终配置。
type EffectiveConfig struct {
	Path       string
	ConfigPath string // 实际读取的配置文件；未读取时为空

	Mode       domain.Mode
	DryRun     bool
	Auto       bool
	Archive    bool
	ArchiveExt string
	ComicInfo  bool
	LogLevel   slog.Level
	Color      string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Code {
	case ErrCodeNotFound:
		return fmt.Sprintf("%s：未找到配置文件 %q", e.Code, e.Path)
	case ErrCodeInvalid:
		if e.Err != nil {
			return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
		}
		return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
	default:
		if e.Err != nil {
			return fmt.Sprintf("%s：%v", e.Code, e.Err)
		}
		return e.Code
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 发现并读取配置文件，然后与 CLI 参数合并为最终配置。
//
// 发现规则：
// 1) CLI 提供 --config：读取该文件（必选，相对路径以 cwd 为基准）
// 2) 否则：尝试读取 <path>/bookorg.yaml（可选）
//
// 覆盖优先级：CLI（显式指定时）> 配置文件 > 默认值。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cwdAbs, err := filepath.Abs(cwd)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cwd, Err: err}
	}

	target := cli.Path
	if strings.TrimSpace(target) == "" {
		target = "."
	}
	absPath := absCleanFrom(cwdAbs, target)

	var (
		cfgPath  string
		required bool
	)
	if strings.TrimSpace(cli.ConfigFile) != "" {
		cfgPath = absCleanFrom(cwdAbs, cli.ConfigFile)
		required = true
	} else {
		cfgPath = filepath.Join(absPath, FileName)
	}

	fc, exists, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}
	if !exists {
		if required {
			return EffectiveConfig{}, &Error{Code: ErrCodeNotFound, Path: cfgPath, Err: os.ErrNotExist}
		}
		cfgPath = ""
	}
	return merge(absPath, cli, fc, cfgPath)
}

func merge(absPath string, cli CLIArgs, fc FileConfig, cfgPath string) (EffectiveConfig, error) {
	invalid := func(err error) (EffectiveConfig, error) {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	// mode：CLI > config > 默认 standard
	modeStr := fc.Mode
	if cli.ModeSet {
		modeStr = cli.Mode
	}
	mode, err := domain.ParseMode(modeStr)
	if err != nil {
		return invalid(err)
	}

	auto := cli.Auto || (fc.Auto != nil && *fc.Auto)
	arch := cli.Archive || (fc.CBZ != nil && *fc.CBZ)

	ext := strings.TrimSpace(fc.ArchiveExt)
	if strings.ContainsAny(ext, `/\`) {
		return invalid(errors.Errorf("archive_ext 不能包含路径分隔符：%q", ext))
	}
	ext = archive.NormalizeExt(ext)

	level, err := parseLogLevel(fc.LogLevel)
	if err != nil {
		return invalid(err)
	}
	if cli.Verbose {
		level = slog.LevelDebug
	}

	color, err := parseColor(fc.Color)
	if err != nil {
		return invalid(err)
	}
	if cli.NoColor {
		color = ColorNever
	}

	return EffectiveConfig{
		Path:       absPath,
		ConfigPath: cfgPath,
		Mode:       mode,
		DryRun:     cli.DryRun,
		Auto:       auto,
		Archive:    arch,
		ArchiveExt: ext,
		ComicInfo:  fc.ComicInfo != nil && *fc.ComicInfo,
		LogLevel:   level,
		Color:      color,
	}, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, errors.Errorf("log_level 只能是 debug/info/warn/error，实际是 %q", s)
	}
}

func parseColor(s string) (string, error) {
	switch v := strings.ToLower(strings.TrimSpace(s)); v {
	case "":
		return ColorAuto, nil
	case ColorAuto, ColorAlways, ColorNever:
		return v, nil
	default:
		return "", errors.Errorf("color 只能是 auto/always/never，实际是 %q", s)
	}
}

// absCleanFrom 以 base 为基准，把 p 变为 clean + absolute。
func absCleanFrom(base, p string) string {
	p = filepath.Clean(strings.TrimSpace(p))
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Clean(filepath.Join(base, p))
}

// readFileConfig 读取并解析 YAML 配置文件。
// 返回值 exists 表示该文件是否存在（不存在不算错误）；空文件等价于全部默认值。
func readFileConfig(path string) (fc FileConfig, exists bool, err error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, false, nil
		}
		return FileConfig{}, false, err
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return FileConfig{}, true, errors.Wrap(err, "解析 YAML 失败")
	}
	return fc, true, nil
}
