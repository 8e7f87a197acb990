package dashboard

import (
	"net/http"
	"strings"

	xerrors "AutoFlow-Agent/internal/errors"
)

// Section 是侧边栏中的一个页面。
type Section string

const (
	SectionHome      Section = "home"
	SectionBuilder   Section = "builder"
	SectionConsole   Section = "console"
	SectionWorkflows Section = "workflows"
	SectionSettings  Section = "settings"
)

// Sections 按侧边栏顺序返回全部页面。
func Sections() []Section {
	return []Section{SectionHome, SectionBuilder, SectionConsole, SectionWorkflows, SectionSettings}
}

// Valid 判断页面是否存在。
func (s Section) Valid() bool {
	switch s {
	case SectionHome, SectionBuilder, SectionConsole, SectionWorkflows, SectionSettings:
		return true
	default:
		return false
	}
}

// Label 返回侧边栏显示名称。
func (s Section) Label() string {
	switch s {
	case SectionHome:
		return "Home"
	case SectionBuilder:
		return "Workflow Builder"
	case SectionConsole:
		return "Agent Console"
	case SectionWorkflows:
		return "Saved Workflows"
	case SectionSettings:
		return "Settings"
	default:
		return "Home"
	}
}

// ParseSection 严格解析页面名称，供 API 使用。
func ParseSection(raw string) (Section, error) {
	s := Section(strings.ToLower(strings.TrimSpace(raw)))
	if !s.Valid() {
		return "", xerrors.New(CodeInvalidSection, "未知的页面: "+raw)
	}
	return s, nil
}

// Theme 表示界面配色。
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// ParseTheme 解析配色名称。
func ParseTheme(raw string) (Theme, error) {
	switch t := Theme(strings.ToLower(strings.TrimSpace(raw))); t {
	case ThemeDark, ThemeLight:
		return t, nil
	default:
		return "", xerrors.New(CodeInvalidTheme, "未知的配色: "+raw)
	}
}

const (
	CodeInvalidSection xerrors.Code = "INVALID_SECTION"
	CodeInvalidTheme   xerrors.Code = "INVALID_THEME"
)

func init() {
	xerrors.Register(CodeInvalidSection, xerrors.Attributes{
		Message:    "invalid section",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	})
	xerrors.Register(CodeInvalidTheme, xerrors.Attributes{
		Message:    "invalid theme",
		Severity:   xerrors.SeverityInfo,
		HTTPStatus: http.StatusBadRequest,
	})
}
