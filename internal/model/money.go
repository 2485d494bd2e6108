package model

import (
    "fmt"
    "math"
)

// FormatCents renders an amount in cents as a two-decimal string, e.g.
// 12345 -> "123.45".
func FormatCents(c int64) string {
    sign := ""
    if c < 0 {
        sign = "-"
        c = -c
    }
    return fmt.Sprintf("%s%d.%02d", sign, c/100, c%100)
}

// CentsFromAmount converts a decimal amount (as sent by clients) to cents,
// rounding half away from zero.
func CentsFromAmount(v float64) int64 {
    return int64(math.Round(v * 100))
}
