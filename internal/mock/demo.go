package mock

import (
	"time"

	"github.com/kalambet/kieview/internal/model"
)

// DemoBatches builds the fixed built-in dataset the store merges in at
// startup. Batch ids are stable so the merge stays idempotent across
// restarts; document ids are derived from them for the same reason.
func DemoBatches(now time.Time) []model.Batch {
	day := 24 * time.Hour

	travel := model.Batch{
		ID:           "batch-1",
		Name:         "International Travel Documents",
		Type:         model.BatchPretrained,
		DocumentType: "Passport",
		Model:        model.ModelFlagship,
		CreatedDate:  now.Add(-2 * day),
		ModifiedDate: now,
	}
	travel.Documents = Documents(ConfigFor(travel), 10, 0, now, "batch-1-doc")

	invoices := model.Batch{
		ID:               "batch-2",
		Name:             "Q1 2024 Invoices",
		Type:             model.BatchCustom,
		DocumentType:     "Invoice",
		ProcessingMethod: model.MethodPrompt,
		CustomPrompt: "Extract the following information from each invoice: Invoice number, Vendor name, " +
			"Total amount, Due date, Line items with descriptions and amounts.",
		Model:        model.ModelLocal,
		CreatedDate:  now.Add(-5 * day),
		ModifiedDate: now.Add(-1 * day),
	}
	invoices.Documents = Documents(ConfigFor(invoices), 8, 3, now, "batch-2-doc")

	verification := model.Batch{
		ID:           "batch-3",
		Name:         "Employee Verification",
		Type:         model.BatchPretrained,
		DocumentType: "Identity Card",
		Model:        model.ModelFlagship,
		CreatedDate:  now.Add(-10 * day),
		ModifiedDate: now.Add(-3 * day),
	}
	verification.Documents = Documents(ConfigFor(verification), 15, 0, now, "batch-3-doc")

	taxes := model.Batch{
		ID:           "batch-4",
		Name:         "2023 Tax Returns",
		Type:         model.BatchPretrained,
		DocumentType: "Tax Document",
		Model:        model.ModelFlagship,
		CreatedDate:  now.Add(-14 * day),
		ModifiedDate: now.Add(-7 * day),
	}
	taxes.Documents = Documents(ConfigFor(taxes), 6, 0, now, "batch-4-doc")

	receipts := model.Batch{
		ID:               "batch-5",
		Name:             "Expense Receipts",
		Type:             model.BatchCustom,
		DocumentType:     "Receipt",
		ProcessingMethod: model.MethodStructure,
		CustomFields: []model.CustomField{
			{Name: "Receipt Number", Type: model.FieldString},
			{Name: "Merchant Name", Type: model.FieldString},
			{Name: "Total Amount", Type: model.FieldCurrency},
			{Name: "Receipt Date", Type: model.FieldDate},
			{Name: "Payment Method", Type: model.FieldString},
		},
		Model:        model.ModelLocal,
		CreatedDate:  now.Add(-8 * day),
		ModifiedDate: now.Add(-2 * day),
	}
	receipts.Documents = Documents(ConfigFor(receipts), 12, 2, now, "batch-5-doc")

	longReceipts := model.Batch{
		ID:               "batch-6",
		Name:             "Long Receipts",
		Type:             model.BatchCustom,
		DocumentType:     "Long Receipt",
		ProcessingMethod: model.MethodStructure,
		CustomFields: []model.CustomField{
			{Name: "Receipt Number", Type: model.FieldString},
			{Name: "Merchant Name", Type: model.FieldString},
			{Name: "Merchant Address", Type: model.FieldString},
			{Name: "Receipt Date", Type: model.FieldDate},
			{Name: "Receipt Time", Type: model.FieldString},
			{Name: "Items", Type: model.FieldString},
			{Name: "Subtotal", Type: model.FieldCurrency},
			{Name: "Tax Rate", Type: model.FieldPercent},
			{Name: "Tax Amount", Type: model.FieldCurrency},
			{Name: "Total Amount", Type: model.FieldCurrency},
			{Name: "Payment Method", Type: model.FieldString},
			{Name: "Cashier", Type: model.FieldString},
			{Name: "Transaction ID", Type: model.FieldString},
		},
		Model:        model.ModelFlagship,
		CreatedDate:  now.Add(-1 * day),
		ModifiedDate: now,
	}
	longReceipts.Documents = Documents(ConfigFor(longReceipts), 8, 0, now, "batch-6-doc")

	return []model.Batch{travel, invoices, verification, taxes, receipts, longReceipts}
}
