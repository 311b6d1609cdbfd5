// Package lineutil builds LINE messages from platform-neutral replies.
package lineutil

// 4-point grid spacing
const (
	SpacingS  = "8px"
	SpacingL  = "16px"
	SpacingXL = "20px"

	LineSpacingNormal = "6px"
	LineSpacingLarge  = "8px"
)

// LINE Design System colors
// Reference: https://designsystem.line.me/LDSM/foundation/color/line-color-guide-ex-en
const (
	ColorLineGreen = "#06C755"
	ColorWhite     = "#FFFFFF"
	ColorGray900   = "#111111"

	ColorPrimary  = ColorLineGreen
	ColorText     = ColorGray900
	ColorHeroBg   = ColorLineGreen
	ColorHeroText = ColorWhite
)
