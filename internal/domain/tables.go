package domain

var Tables = []interface{}{
	// Directory
	&User{},
	// Catalog
	&CatalogItem{},
	&DeviceStock{},
	&DevicePricing{},
	// Settlement
	&Transaction{},
	// Fleet
	&Device{},
	&DeviceDataLog{},
	// System
	&SysEventLog{},
}
