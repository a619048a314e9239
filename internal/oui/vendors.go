package oui

// builtinVendors is a curated subset of the IEEE MA-L registry covering the
// vendor families the classifier (internal/classify) has explicit rules
// for: consumer routers/gateways, TVs and streaming boxes, game consoles,
// phones, printers, and common virtualization platforms. A deployment that
// needs full coverage can call DB.Load with a parsed snapshot of the IEEE
// registry (https://standards-oui.ieee.org/oui/oui.txt); this table is the
// always-available fallback baked into the binary.
var builtinVendors = map[string]string{
	// Routers / gateways
	"F0272D": "Netgear",
	"A42B8C": "Netgear",
	"204E7F": "Netgear",
	"C0562B": "ASUSTek",
	"2C56DC": "ASUSTek",
	"001FA4": "TP-Link",
	"A0F3C1": "TP-Link",
	"B0487A": "TP-Link",
	"D4EE07": "Ubiquiti Networks",
	"FCECDA": "Ubiquiti Networks",
	"24A43C": "Ubiquiti Networks",
	"3C37E6": "eero",
	"B827EB": "Raspberry Pi Foundation",
	"DCA632": "Raspberry Pi Foundation",
	"E45F01": "Raspberry Pi Foundation",

	// Phones / tablets / laptops
	"7CD1C3": "Apple",
	"A4C361": "Apple",
	"F0189F": "Apple",
	"BC926B": "Apple",
	"D0817A": "Apple",
	"3C5AB4": "Google",
	"D83062": "Samsung Electronics",

	// Smart TVs / streaming
	"CC6D2C": "Samsung Electronics",
	"8C7967": "Samsung Electronics",
	"D46AA8": "Roku",
	"B0A737": "Roku",
	"DC4F22": "Roku",
	"AC3743": "Google",
	"F4F5D8": "Google",
	"1C4D70": "Amazon Technologies",
	"74C246": "Amazon Technologies",
	"FCA183": "Sonos",
	"000E58": "Sonos",

	// Game consoles
	"B86EE3": "Nintendo",
	"9C2A70": "Nintendo",
	"7842B2": "Nintendo",
	"FCF5C4": "Sony Interactive Entertainment",
	"0024D7": "Sony Interactive Entertainment",
	"7CED8D": "Microsoft",
	"C8D9D2": "Microsoft",

	// Printers
	"3C2AF4": "HP",
	"D4C9EF": "HP",
	"002655": "Canon",
	"00262D": "Brother Industries",

	// Virtualization
	"000C29": "VMware",
	"005056": "VMware",
	"080027": "Oracle VirtualBox",
	"525400": "QEMU/KVM",
}
