// Package command defines the closed command-token vocabulary shared by the
// ingress gate and the dispatcher, plus gesture-name normalization and the
// gesture-to-command mapping.
package command

import (
	"regexp"
	"strings"
)

// Token identifies a user-facing action. The vocabulary is closed: the
// dispatcher ignores anything not listed here.
type Token = string

// Numeric codes, kept wire-compatible with the watch/phone clients.
const (
	TokenOverlayOn    Token = "0"
	TokenOverlayOff   Token = "1"
	TokenResetAll     Token = "2"
	TokenSlidePrev    Token = "3"
	TokenSlideNext    Token = "4"
	TokenCaptionStart Token = "5"
	TokenHandDraw     Token = "6"
	TokenDrawing      Token = "7"
	TokenCaptionStop  Token = "8"
	TokenPointer      Token = "9"
)

// Named codes.
const (
	TokenJumpBack       Token = "JUMP_BACK"
	TokenJumpForward    Token = "JUMP_FORWARD"
	TokenColorPrev      Token = "COLOR_PREV"
	TokenColorNext      Token = "COLOR_NEXT"
	TokenTimerToggle    Token = "TIMER_TOGGLE"
	TokenCalibrate      Token = "CALIBRATE"
	TokenCalibrateReset Token = "CALIBRATE_RESET"
	TokenBlackout       Token = "BLACKOUT"
	TokenOCRStart       Token = "OCR_START"
	TokenOCRText        Token = "OCR_TEXT"
	TokenOCRMath        Token = "OCR_MATH"
	TokenOCREval        Token = "OCR_EVAL"
	TokenOCRGraph       Token = "OCR_GRAPH"
)

// Debug letter codes, typed into the dev console or sent from a test client.
const (
	TokenDebugRestartGesture Token = "g"
	TokenDebugRestartTracker Token = "t"
	TokenDebugStatus         Token = "s"
)

// Known returns true if tok is part of the command vocabulary.
func Known(tok Token) bool {
	_, ok := knownTokens[tok]
	return ok
}

var knownTokens = map[Token]struct{}{
	TokenOverlayOn: {}, TokenOverlayOff: {}, TokenResetAll: {},
	TokenSlidePrev: {}, TokenSlideNext: {}, TokenCaptionStart: {},
	TokenHandDraw: {}, TokenDrawing: {}, TokenCaptionStop: {}, TokenPointer: {},
	TokenJumpBack: {}, TokenJumpForward: {},
	TokenColorPrev: {}, TokenColorNext: {},
	TokenTimerToggle: {}, TokenCalibrate: {}, TokenCalibrateReset: {},
	TokenBlackout: {},
	TokenOCRStart: {}, TokenOCRText: {}, TokenOCRMath: {}, TokenOCREval: {}, TokenOCRGraph: {},
	TokenDebugRestartGesture: {}, TokenDebugRestartTracker: {}, TokenDebugStatus: {},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// aliases folds classifier label variants onto canonical gesture names.
// Applied after lowercasing and whitespace collapsing, so keys are already
// in collapsed form.
var aliases = map[string]string{
	"circle_clockwise":         "circle_cw",
	"circle_counter_clockwise": "circle_ccw",
	"circle_counterclockwise":  "circle_ccw",
	"figure_8":                 "figure_eight",
	"doubletap":                "double_tap",
}

// Normalize derives the canonical gesture name from a raw classifier label:
// lowercase, whitespace runs collapsed to a single underscore, then the
// alias table. Pure and idempotent.
func Normalize(raw string) string {
	n := strings.ToLower(strings.TrimSpace(raw))
	n = whitespaceRun.ReplaceAllString(n, "_")
	if canonical, ok := aliases[n]; ok {
		return canonical
	}
	return n
}

// Mapping maps normalized gesture names to command tokens.
type Mapping map[string]Token

// DefaultMapping returns the stock gesture-to-command table. Config can
// override individual entries.
func DefaultMapping() Mapping {
	return Mapping{
		"left":         TokenSlidePrev,
		"right":        TokenSlideNext,
		"up":           TokenOverlayOn,
		"down":         TokenOverlayOff,
		"circle_cw":    TokenCaptionStart,
		"circle_ccw":   TokenCaptionStop,
		"double_left":  TokenJumpBack,
		"double_right": TokenJumpForward,
		"x":            TokenResetAll,
		"double_tap":   TokenHandDraw,
		"90_left":      TokenColorPrev,
		"90_right":     TokenColorNext,
		"figure_eight": TokenTimerToggle,
		"square":       TokenCalibrate,
		"triangle":     TokenBlackout,
	}
}

// Lookup resolves a normalized gesture name to its command token.
func (m Mapping) Lookup(normalized string) (Token, bool) {
	tok, ok := m[normalized]
	return tok, ok
}

// Merge overlays overrides onto m, returning m for chaining. Entries with an
// empty token remove the mapping.
func (m Mapping) Merge(overrides map[string]string) Mapping {
	for gesture, tok := range overrides {
		key := Normalize(gesture)
		if tok == "" {
			delete(m, key)
			continue
		}
		m[key] = tok
	}
	return m
}
