package nintendo

import (
	"regexp"
	"strings"
)

// Vendor OUIs registered to the console manufacturer. Checking against this
// table locally saves an OUI registry lookup on every NASC request.
var vendorOUIs = map[string]struct{}{}

func init() {
	for _, oui := range []string{
		"ECC40D", "E84ECE", "E0F6B5", "E0E751", "E00C7F", "DC68EB",
		"D86BF7", "D4F057", "CCFB65", "CC9E00", "B8AE6E", "B88AEC",
		"B87826", "A4C0E1", "A45C27", "A438CC", "9CE635", "98E8FA",
		"98B6E9", "98415C", "9458CB", "8CCDE8", "8C56C5", "7CBB8A",
		"78A2A0", "7048F7", "64B5C6", "606BFF", "5C521E", "58BDA3",
		"582F40", "48A5E7", "40F407", "40D28A", "34AF2C", "342FBD",
		"2C10C1", "182A7B", "0403D6", "002709", "002659", "0025A0",
		"0024F3", "002444", "00241E", "0023CC", "002331", "0022D7",
		"0022AA", "00224C", "0021BD", "002147", "001FC5", "001F32",
		"001EA9", "001E35", "001DBC", "001CBE", "001BEA", "001B7A",
		"001AE9", "0019FD", "00191D", "0017AB", "001656", "0009BF",
	} {
		vendorOUIs[oui] = struct{}{}
	}
}

var macAddressPattern = regexp.MustCompile(`^[0-9a-fA-F]{12}$`)

// ValidMACAddress reports whether a console-reported MAC address is 12 hex
// characters with a vendor-registered OUI prefix.
func ValidMACAddress(mac string) bool {
	if len(mac) < 6 {
		return false
	}
	if _, ok := vendorOUIs[strings.ToUpper(mac[:6])]; !ok {
		return false
	}
	return macAddressPattern.MatchString(mac)
}
