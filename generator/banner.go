package generator

import (
	"bytes"
	"fmt"
)

// generatedMarker is the machine/hand discriminator. Every file zerogen
// owns carries it near the top; a file on a generated path without it has
// been edited by hand and is treated as a conflict.
const generatedMarker = "@generated by zerogen"

// bannerScanWindow bounds how far into a file the marker is looked for,
// so a marker quoted deep inside hand-written code does not count.
const bannerScanWindow = 512

func fileBanner(lines ...string) string {
	banner := fmt.Sprintf("// %s. DO NOT EDIT.\n", generatedMarker)
	if len(lines) > 0 {
		banner += "//\n"
		for _, line := range lines {
			if line == "" {
				banner += "//\n"
			} else {
				banner += "// " + line + "\n"
			}
		}
	}
	return banner
}

// HasGeneratedBanner reports whether content starts with machine output.
func HasGeneratedBanner(content []byte) bool {
	head := content
	if len(head) > bannerScanWindow {
		head = head[:bannerScanWindow]
	}
	return bytes.Contains(head, []byte(generatedMarker))
}
