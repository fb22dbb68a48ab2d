package fieldtype

// DefaultFieldDefs returns the built-in field definitions for the material
// master readiness check. Keys follow the source system's field names so
// that record keys map onto definitions without a translation layer.
func DefaultFieldDefs() []*FieldDef {
	return []*FieldDef{
		{
			Key:         "MATNR",
			SourceTable: "MARA",
			SourceField: "MATNR",
			Category:    CategoryChar,
			Mandatory:   true,
			CharConstraints: &CharConstraints{
				MaxLength:    18,
				Alphanumeric: true,
			},
			Description: "Material number",
		},
		{
			Key:             "MEINS",
			SourceTable:     "MARA",
			SourceField:     "MEINS",
			Category:        CategoryUnit,
			WhitelistSource: SourceUnits,
			Mandatory:       true,
			Description:     "Base unit of measure",
		},
		{
			Key:          "MENGE",
			SourceTable:  "MARD",
			SourceField:  "MENGE",
			Category:     CategoryQuantity,
			Dependencies: []string{"MEINS"},
			Mandatory:    true,
			Description:  "Quantity in base unit",
		},
		{
			Key:             "GEWEI",
			SourceTable:     "MARA",
			SourceField:     "GEWEI",
			Category:        CategoryUnit,
			WhitelistSource: SourceUnits,
			Description:     "Weight unit",
		},
		{
			Key:          "NTGEW",
			SourceTable:  "MARA",
			SourceField:  "NTGEW",
			Category:     CategoryQuantity,
			Dependencies: []string{"GEWEI"},
			Description:  "Net weight",
		},
		{
			Key:             "WAERS",
			SourceTable:     "MBEW",
			SourceField:     "WAERS",
			Category:        CategoryCurrency,
			WhitelistSource: SourceCurrencies,
			Description:     "Currency key",
		},
		{
			Key:          "STPRS",
			SourceTable:  "MBEW",
			SourceField:  "STPRS",
			Category:     CategoryAmount,
			Dependencies: []string{"WAERS"},
			Description:  "Standard price",
		},
		{
			Key:             "MTART",
			SourceTable:     "MARA",
			SourceField:     "MTART",
			Category:        CategoryDomain,
			WhitelistSource: SourceMaterialTypes,
			Mandatory:       true,
			Description:     "Material type",
		},
		{
			Key:         "ERDAT",
			SourceTable: "MARA",
			SourceField: "ERDAT",
			Category:    CategoryDate,
			Description: "Created-on date",
		},
		{
			Key:         "LAEDA",
			SourceTable: "MARA",
			SourceField: "LAEDA",
			Category:    CategoryDate,
			Description: "Last-changed date",
		},
		{
			Key:             "BESKZ",
			SourceTable:     "MARC",
			SourceField:     "BESKZ",
			Category:        CategoryDomain,
			WhitelistSource: SourceProcurement,
			Mandatory:       true,
			Description:     "Procurement type",
		},
		{
			Key:         "KZKFG",
			SourceTable: "MARA",
			SourceField: "KZKFG",
			Category:    CategoryBoolean,
			Description: "Configurable material flag",
		},
		{
			Key:             "TIMBER_CODES",
			SourceTable:     "MARA_EXT",
			SourceField:     "TIMBER_CODES",
			Category:        CategoryCodeArray,
			WhitelistSource: SourceSpecies,
			Mandatory:       true,
			Description:     "Timber species codes for deforestation reporting",
		},
		{
			Key:         "HERKL",
			SourceTable: "MARC",
			SourceField: "HERKL",
			Category:    CategoryChar,
			Mandatory:   true,
			CharConstraints: &CharConstraints{
				ExactLength:  2,
				Alphanumeric: true,
			},
			Description: "Country of origin",
		},
	}
}
