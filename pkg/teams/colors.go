package teams

// Palette is the fixed set of member colors, assigned round-robin by member
// index. The lead takes index 0 at team birth; the first teammate gets blue.
var Palette = [8]string{
	"red",
	"blue",
	"green",
	"yellow",
	"purple",
	"orange",
	"pink",
	"cyan",
}

// ColorForIndex returns the palette entry for the n-th member.
func ColorForIndex(n int) string {
	if n < 0 {
		n = 0
	}
	return Palette[n%len(Palette)]
}
