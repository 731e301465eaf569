package rules

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction categories known to the seed rule set.
const (
	CategoryTechnical      = "technical"
	CategoryConsulting     = "consulting"
	CategoryCloudServices  = "cloud_services"
	CategoryDataProcessing = "data_processing"
	CategoryDigitalContent = "digital_content"
	CategoryRoyalty        = "royalty"
	CategoryLegal          = "legal"
	CategoryAccounting     = "accounting"
	CategoryFinancial      = "financial"
	CategoryInsurance      = "insurance"
	CategoryEcommerce      = "ecommerce"
	CategoryGoods          = "goods"
)

// Rule categories used for exclusivity grouping.
const (
	RuleCategoryGST         = "gst"
	RuleCategoryVAT         = "vat"
	RuleCategoryWithholding = "withholding"
	RuleCategoryRemittance  = "remittance"
)

// Common document types emitted by seed rules.
const (
	DocInvoice           = "invoice"
	DocVATInvoice        = "vat_invoice"
	DocTaxResidencyCert  = "tax_residency_certificate"
	DocForeignRemittance = "foreign_remittance_certificate"
	DocCACertificate     = "ca_certificate"
	DocW8BEN             = "w8ben"
	DocWithholdingReturn = "withholding_return"
	DocProofOfService    = "proof_of_service"
	DocGSTReturn         = "gst_return"
	DocServiceAgreement  = "service_agreement"
)

var seedEpoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Seed builds the default registry snapshot: the jurisdictions, rules and
// treaties the system ships with. Deployments replace or extend this via
// Registry.Publish; the engine itself is rule-set agnostic.
func Seed() *Snapshot {
	return NewSnapshot(1, seedJurisdictions(), seedRules(), seedTreaties())
}

func seedJurisdictions() []Jurisdiction {
	return []Jurisdiction{
		{Code: "IN", Name: "India", Currency: "INR", Regime: "gst"},
		{Code: "US", Name: "United States", Currency: "USD", Regime: "withholding"},
		{Code: "GB", Name: "United Kingdom", Currency: "GBP", Regime: "vat"},
		{Code: "DE", Name: "Germany", Currency: "EUR", Regime: "vat", EUMember: true},
		{Code: "FR", Name: "France", Currency: "EUR", Regime: "vat", EUMember: true},
		{Code: "SG", Name: "Singapore", Currency: "SGD", Regime: "gst"},
	}
}

func seedRules() []ComplianceRule {
	serviceCategories := []string{
		CategoryTechnical, CategoryConsulting, CategoryLegal, CategoryAccounting,
	}
	contractorCategories := []string{
		CategoryCloudServices, CategoryDataProcessing, CategoryDigitalContent,
	}

	return []ComplianceRule{
		// --- India ---
		{
			ID:               "IN-GST-STD",
			JurisdictionCode: "IN",
			Description:      "Standard GST on supplies",
			Category:         RuleCategoryGST,
			Effects:          []Effect{RateEffect(TaxGST, "18")},
			EffectiveFrom:    seedEpoch,
		},
		{
			ID:               "IN-RCM-IMPORT",
			JurisdictionCode: "IN",
			Description:      "Reverse charge on imported services",
			Category:         RuleCategoryGST,
			Predicate:        Predicate{CrossBorderOnly: true},
			Effects: []Effect{
				RateEffect(TaxReverseCharge, "18"),
				DocumentEffect(DocInvoice, "RCM Self-Invoice", 30),
			},
			Exclusive:     true,
			EffectiveFrom: seedEpoch,
		},
		{
			ID:               "IN-TDS-194J",
			JurisdictionCode: "IN",
			Description:      "TDS on professional and technical services (Section 194J)",
			Category:         RuleCategoryWithholding,
			Predicate:        Predicate{Categories: serviceCategories},
			Effects: []Effect{
				RateEffect(TaxTDS, "10"),
				DocumentEffect(DocTaxResidencyCert, "26Q", 30),
			},
			EffectiveFrom: seedEpoch,
		},
		{
			ID:               "IN-TDS-194C",
			JurisdictionCode: "IN",
			Description:      "TDS on contract work (Section 194C)",
			Category:         RuleCategoryWithholding,
			Predicate:        Predicate{Categories: contractorCategories},
			Effects:          []Effect{RateEffect(TaxTDS, "2")},
			EffectiveFrom:    seedEpoch,
		},
		{
			ID:               "IN-REMIT-15CA",
			JurisdictionCode: "IN",
			Description:      "Foreign remittance certification",
			Category:         RuleCategoryRemittance,
			Predicate:        Predicate{CrossBorderOnly: true},
			Effects: []Effect{
				DocumentEffect(DocForeignRemittance, "15CA", 7),
				DocumentEffect(DocCACertificate, "15CB", 7),
			},
			EffectiveFrom: seedEpoch,
		},
		{
			ID:               "IN-REMIT-15CB-THRESHOLD",
			JurisdictionCode: "IN",
			Description:      "CA certificate above the remittance threshold",
			Category:         RuleCategoryRemittance,
			Predicate: Predicate{
				CrossBorderOnly: true,
				MinAmount:       decimalPtr("500000"),
			},
			Effects:       []Effect{DocumentEffect(DocServiceAgreement, "15CB", 7)},
			EffectiveFrom: seedEpoch,
		},

		// --- United States ---
		{
			ID:               "US-WHT-NRA",
			JurisdictionCode: "US",
			Description:      "Withholding on payments to foreign persons",
			Category:         RuleCategoryWithholding,
			Predicate:        Predicate{CrossBorderOnly: true},
			Effects: []Effect{
				RateEffect(TaxWithholding, "30"),
				DocumentEffect(DocW8BEN, "W-8BEN", 0),
				DocumentEffect(DocWithholdingReturn, "1042-S", 75),
			},
			EffectiveFrom: seedEpoch,
		},

		// --- United Kingdom ---
		{
			ID:               "GB-VAT-STD",
			JurisdictionCode: "GB",
			Description:      "Standard rate VAT",
			Category:         RuleCategoryVAT,
			Effects: []Effect{
				RateEffect(TaxVAT, "20"),
				DocumentEffect(DocVATInvoice, "VAT Return", 37),
			},
			EffectiveFrom: seedEpoch,
		},
		{
			ID:               "GB-WHT-CT61",
			JurisdictionCode: "GB",
			Description:      "Income tax withheld on payments to non-residents",
			Category:         RuleCategoryWithholding,
			Predicate:        Predicate{CrossBorderOnly: true, Categories: []string{CategoryRoyalty}},
			Effects: []Effect{
				RateEffect(TaxWithholding, "20"),
				DocumentEffect(DocWithholdingReturn, "CT61", 90),
			},
			EffectiveFrom: seedEpoch,
		},

		// --- Germany ---
		{
			ID:               "DE-VAT-STD",
			JurisdictionCode: "DE",
			Description:      "Umsatzsteuer standard rate",
			Category:         RuleCategoryVAT,
			Effects: []Effect{
				RateEffect(TaxVAT, "19"),
				DocumentEffect(DocVATInvoice, "UStVA", 30),
			},
			EffectiveFrom: seedEpoch,
		},
		{
			ID:               "DE-VAT-ZM",
			JurisdictionCode: "DE",
			Description:      "EU sales listing for cross-border supplies",
			Category:         RuleCategoryVAT,
			Predicate:        Predicate{CrossBorderOnly: true},
			Effects:          []Effect{DocumentEffect(DocProofOfService, "ZM", 25)},
			EffectiveFrom:    seedEpoch,
		},

		// --- France ---
		{
			ID:               "FR-TVA-STD",
			JurisdictionCode: "FR",
			Description:      "TVA standard rate",
			Category:         RuleCategoryVAT,
			Effects: []Effect{
				RateEffect(TaxVAT, "20"),
				DocumentEffect(DocVATInvoice, "CA3", 30),
			},
			EffectiveFrom: seedEpoch,
		},
		{
			ID:               "FR-TVA-EXEMPT-FIN",
			JurisdictionCode: "FR",
			Description:      "Financial and insurance services exempt from TVA",
			Category:         RuleCategoryVAT,
			Predicate:        Predicate{Categories: []string{CategoryFinancial, CategoryInsurance}},
			Effects:          []Effect{RateEffect(TaxVAT, "0")},
			Exclusive:        true,
			EffectiveFrom:    seedEpoch,
		},
		{
			ID:               "FR-TVA-DES",
			JurisdictionCode: "FR",
			Description:      "EU services declaration",
			Category:         RuleCategoryVAT,
			Predicate:        Predicate{CrossBorderOnly: true},
			Effects:          []Effect{DocumentEffect(DocProofOfService, "DES", 30)},
			EffectiveFrom:    seedEpoch,
		},
		{
			ID:               "FR-WHT-NONRES",
			JurisdictionCode: "FR",
			Description:      "Withholding on services supplied by non-residents",
			Category:         RuleCategoryWithholding,
			Predicate:        Predicate{CrossBorderOnly: true},
			Effects:          []Effect{RateEffect(TaxWithholding, "15")},
			EffectiveFrom:    seedEpoch,
		},

		// --- Singapore ---
		{
			ID:               "SG-GST-STD7",
			JurisdictionCode: "SG",
			Description:      "GST standard rate (pre-2023)",
			Category:         RuleCategoryGST,
			Effects: []Effect{
				RateEffect(TaxGST, "7"),
				DocumentEffect(DocGSTReturn, "F5", 30),
			},
			EffectiveFrom: seedEpoch,
			EffectiveTo:   time.Date(2022, 12, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			ID:               "SG-GST-STD8",
			JurisdictionCode: "SG",
			Description:      "GST standard rate",
			Category:         RuleCategoryGST,
			Effects: []Effect{
				RateEffect(TaxGST, "8"),
				DocumentEffect(DocGSTReturn, "F5", 30),
			},
			EffectiveFrom: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:               "SG-WHT-TECH",
			JurisdictionCode: "SG",
			Description:      "Withholding on technical services paid abroad",
			Category:         RuleCategoryWithholding,
			Predicate: Predicate{
				CrossBorderOnly: true,
				Categories:      []string{CategoryTechnical, CategoryConsulting, CategoryCloudServices},
			},
			Effects: []Effect{
				RateEffect(TaxWithholding, "17"),
				DocumentEffect(DocWithholdingReturn, "S45", 30),
			},
			EffectiveFrom: seedEpoch,
		},
	}
}

// Treaty withholding rates are keyed by treaty category; the analyzer maps
// transaction categories onto these keys.
const (
	TreatyCategoryRoyalty   = "royalty"
	TreatyCategoryTechnical = "technical_services"
)

func seedTreaties() []Treaty {
	return []Treaty{
		{
			Countries: [2]string{"IN", "US"},
			WithholdingRates: map[string]decimal.Decimal{
				TreatyCategoryRoyalty:   decimal.RequireFromString("15"),
				TreatyCategoryTechnical: decimal.RequireFromString("15"),
			},
			PEDays: 90,
		},
		{
			Countries: [2]string{"IN", "GB"},
			WithholdingRates: map[string]decimal.Decimal{
				TreatyCategoryRoyalty:   decimal.RequireFromString("15"),
				TreatyCategoryTechnical: decimal.RequireFromString("15"),
			},
			PEDays: 90,
		},
		{
			Countries: [2]string{"SG", "FR"},
			WithholdingRates: map[string]decimal.Decimal{
				TreatyCategoryRoyalty:   decimal.RequireFromString("5"),
				TreatyCategoryTechnical: decimal.Zero,
			},
			PEDays: 183,
		},
	}
}

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}
