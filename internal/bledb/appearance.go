package bledb

// Appearance values pack a 10-bit category and a 6-bit subcategory.
const (
	appearanceCategoryShift = 6
	appearanceSubMask       = 0x3F
)

type appearanceCategory struct {
	name string
	subs map[uint8]string
}

var appearanceCategories = map[uint16]appearanceCategory{
	0x000: {name: "Unknown"},
	0x001: {name: "Phone"},
	0x002: {name: "Computer", subs: map[uint8]string{1: "Desktop Workstation", 2: "Server-class Computer", 3: "Laptop", 4: "Handheld PC/PDA", 5: "Palm-size PC/PDA", 6: "Wearable computer", 7: "Tablet"}},
	0x003: {name: "Watch", subs: map[uint8]string{1: "Sports Watch", 2: "Smartwatch"}},
	0x004: {name: "Clock"},
	0x005: {name: "Display"},
	0x006: {name: "Remote Control"},
	0x007: {name: "Eye-glasses"},
	0x008: {name: "Tag"},
	0x009: {name: "Keyring"},
	0x00A: {name: "Media Player"},
	0x00B: {name: "Barcode Scanner"},
	0x00C: {name: "Thermometer", subs: map[uint8]string{1: "Ear Thermometer"}},
	0x00D: {name: "Heart Rate Sensor", subs: map[uint8]string{1: "Heart Rate Belt"}},
	0x00E: {name: "Blood Pressure", subs: map[uint8]string{1: "Arm Blood Pressure", 2: "Wrist Blood Pressure"}},
	0x00F: {name: "Human Interface Device", subs: map[uint8]string{1: "Keyboard", 2: "Mouse", 3: "Joystick", 4: "Gamepad", 5: "Digitizer Tablet", 6: "Card Reader", 7: "Digital Pen", 8: "Barcode Scanner"}},
	0x010: {name: "Glucose Meter"},
	0x011: {name: "Running Walking Sensor", subs: map[uint8]string{1: "In-Shoe Running Walking Sensor", 2: "On-Shoe Running Walking Sensor", 3: "On-Hip Running Walking Sensor"}},
	0x012: {name: "Cycling", subs: map[uint8]string{1: "Cycling Computer", 2: "Speed Sensor", 3: "Cadence Sensor", 4: "Power Sensor", 5: "Speed and Cadence Sensor"}},
	0x031: {name: "Pulse Oximeter", subs: map[uint8]string{1: "Fingertip Pulse Oximeter", 2: "Wrist Worn Pulse Oximeter"}},
	0x033: {name: "Weight Scale"},
	0x051: {name: "Outdoor Sports Activity", subs: map[uint8]string{1: "Location Display", 2: "Location and Navigation Display", 3: "Location Pod", 4: "Location and Navigation Pod"}},
}

// LookupAppearance splits an appearance value and names its parts. category
// is "" when the category is not assigned; subcategory is "" for the generic
// subcategory 0 and for unassigned ones.
func LookupAppearance(code uint16) (category, subcategory string, known bool) {
	cat, ok := appearanceCategories[code>>appearanceCategoryShift]
	if !ok {
		return "", "", false
	}
	sub := uint8(code & appearanceSubMask)
	if sub == 0 {
		return cat.name, "", true
	}
	name, ok := cat.subs[sub]
	return cat.name, name, ok
}
