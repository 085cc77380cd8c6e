// Package mock produces the demo dataset: deterministic fake documents and
// extraction results for every supported document type. Nothing here talks
// to a real model; "processing" is a flag baked in at generation time.
package mock

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/kieview/internal/model"
)

// DocumentTypes lists the pretrained document type options, in display order.
func DocumentTypes() []string {
	return []string{
		"Passport",
		"Identity Card",
		"Driver's License",
		"Birth Certificate",
		"Tax Document",
		"Bank Statement",
		"Invoice",
		"Receipt",
		"Utility Bill",
		"Medical Record",
	}
}

// LoginEmails lists the demo accounts offered on the login page.
func LoginEmails() []string {
	return []string{
		"john.doe@company.com",
		"jane.smith@company.com",
		"alex.wong@company.com",
		"sarah.johnson@company.com",
		"mike.chen@company.com",
	}
}

// Config describes the extraction configuration documents are generated
// against: the document type label plus, for custom batches, the schema.
type Config struct {
	DocumentType string
	Method       model.ProcessingMethod
	Fields       []model.CustomField
	Prompt       string
}

// ConfigFor derives the generation config from a batch.
func ConfigFor(b model.Batch) Config {
	return Config{
		DocumentType: b.DocumentType,
		Method:       b.ProcessingMethod,
		Fields:       b.CustomFields,
		Prompt:       b.CustomPrompt,
	}
}

// Documents generates count mock documents for cfg. Document 0 is always
// completed; documents 1..processing are still processing (no extracted
// data, nil processed date). Extraction payloads are deterministic in the
// document index. When idPrefix is non-empty, document ids are stable
// ("<prefix>-001", ...); otherwise each gets a fresh uuid.
func Documents(cfg Config, count, processing int, now time.Time, idPrefix string) []model.Document {
	docs := make([]model.Document, 0, count)
	for i := 0; i < count; i++ {
		inProgress := i > 0 && i <= processing

		id := uuid.New().String()
		if idPrefix != "" {
			id = fmt.Sprintf("%s-%03d", idPrefix, i+1)
		}

		doc := model.Document{
			ID:           id,
			FileSize:     500_000 + int64(i*997_003)%5_000_000,
			UploadDate:   now.Add(-time.Duration(i%7*24+i%11) * time.Hour),
			DocumentType: cfg.DocumentType,
		}

		if inProgress {
			doc.Status = model.StatusProcessing
			doc.Filename = fmt.Sprintf("%s_%03d.pdf", slug(cfg.DocumentType), i+1)
		} else {
			doc.Status = model.StatusCompleted
			processed := now
			doc.ProcessedDate = &processed
			result, filename := extract(cfg, i, now)
			doc.ExtractedData = &result
			doc.Filename = filename
		}

		doc.FileType = "pdf"
		if strings.HasSuffix(doc.Filename, ".jpg") {
			doc.FileType = "jpg"
		}

		docs = append(docs, doc)
	}
	return docs
}

// extract picks the generator for the configured document type, falling
// back to the custom schema (or a stub) for unknown labels.
func extract(cfg Config, index int, now time.Time) (model.ExtractionResult, string) {
	switch cfg.DocumentType {
	case "Passport":
		return passport(index)
	case "Identity Card":
		return identityCard(index)
	case "Tax Document":
		return taxDocument(index)
	case "Receipt":
		return receipt(index)
	case "Long Receipt":
		return longReceipt(index)
	case "Invoice":
		return invoicePrompt(index)
	}

	switch cfg.Method {
	case model.MethodPrompt:
		return customPrompt(index, now), fmt.Sprintf("custom_document_%03d.pdf", index+1)
	case model.MethodStructure:
		return customStructure(cfg.Fields, index, now), fmt.Sprintf("custom_document_%03d.pdf", index+1)
	}

	return model.NewStructuredResult([]model.FieldValue{
		{Name: "note", Value: model.StringValue("Sample extracted data")},
	}), fmt.Sprintf("document_%d.pdf", index+1)
}

func slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "_")
}

func pick(options []string, index int) string {
	return options[index%len(options)]
}

func passport(index int) (model.ExtractionResult, string) {
	given := pick([]string{
		"John Michael", "Jane Elizabeth", "Alex Wei", "Sarah Marie", "Michael James",
		"Emma Grace", "David Lee", "Lisa Ann", "Robert Chen", "Maria Santos",
	}, index)
	surname := pick([]string{
		"Doe", "Smith", "Wong", "Johnson", "Chen",
		"Williams", "Lee", "Taylor", "Wang", "Garcia",
	}, index)

	result := model.NewStructuredResult([]model.FieldValue{
		{Name: "documentNumber", Value: model.StringValue(fmt.Sprintf("P%d", 10_000_000+index))},
		{Name: "givenNames", Value: model.StringValue(given)},
		{Name: "surname", Value: model.StringValue(surname)},
		{Name: "dateOfBirth", Value: model.StringValue(fmt.Sprintf("%d-%02d-%02d", 1980+index%20, index%12+1, index%28+1))},
		{Name: "placeOfBirth", Value: model.StringValue(pick([]string{"New York, USA", "London, UK", "Singapore", "Sydney, Australia", "Toronto, Canada"}, index))},
		{Name: "dateOfIssue", Value: model.StringValue("2020-03-20")},
		{Name: "dateOfExpiry", Value: model.StringValue("2030-03-20")},
		{Name: "nationality", Value: model.StringValue(pick([]string{"United States of America", "United Kingdom", "Singapore", "Australia", "Canada"}, index))},
		{Name: "sex", Value: model.StringValue(sexAt(index, "M", "F"))},
	})
	first := strings.ToLower(strings.Fields(given)[0])
	return result, fmt.Sprintf("passport_%s_%s.pdf", strings.ToLower(surname), first)
}

func identityCard(index int) (model.ExtractionResult, string) {
	fullName := pick([]string{
		"Jane Smith", "John Doe", "Alex Wong", "Sarah Johnson", "Mike Chen",
		"Emma Williams", "David Lee", "Lisa Taylor", "Robert Wang", "Maria Garcia",
		"James Brown", "Jennifer Davis", "William Miller", "Patricia Wilson", "Richard Moore",
	}, index)

	result := model.NewStructuredResult([]model.FieldValue{
		{Name: "idNumber", Value: model.StringValue(fmt.Sprintf("S%d%c", 1_000_000+index, 'A'+rune(index%26)))},
		{Name: "fullName", Value: model.StringValue(fullName)},
		{Name: "dateOfBirth", Value: model.StringValue(fmt.Sprintf("%d-%02d-%02d", 1985+index%15, index%12+1, index%28+1))},
		{Name: "address", Value: model.StringValue(fmt.Sprintf("%d Main Street, Unit %02d-%02d, Singapore %d", 100+index, index, index%20+1, 100_000+index))},
		{Name: "dateOfIssue", Value: model.StringValue("2019-07-10")},
		{Name: "dateOfExpiry", Value: model.StringValue("2029-07-10")},
		{Name: "sex", Value: model.StringValue(sexAt(index, "F", "M"))},
	})
	return result, fmt.Sprintf("id_card_%s.jpg", strings.Replace(strings.ToLower(fullName), " ", "_", 1))
}

func taxDocument(index int) (model.ExtractionResult, string) {
	name := pick([]string{
		"Michael Johnson", "Emily Davis", "Christopher Brown",
		"Amanda Wilson", "Matthew Taylor", "Jessica Anderson",
	}, index)

	result := model.NewStructuredResult([]model.FieldValue{
		{Name: "taxYear", Value: model.StringValue("2023")},
		{Name: "taxpayerName", Value: model.StringValue(name)},
		{Name: "ssn", Value: model.StringValue(fmt.Sprintf("***-**-%d", 5000+index))},
		{Name: "filingStatus", Value: model.StringValue(pick([]string{"Single", "Married Filing Jointly", "Head of Household"}, index))},
		{Name: "totalIncome", Value: model.StringValue(dollars(75_000 + index*5_000))},
		{Name: "taxableIncome", Value: model.StringValue(dollars(62_000 + index*4_000))},
		{Name: "totalTax", Value: model.StringValue(dollars(11_000 + index*800))},
		{Name: "refundAmount", Value: model.StringValue(dollars(1_000 + index*100))},
	})
	return result, fmt.Sprintf("tax_return_2023_%s.pdf", strings.Replace(strings.ToLower(name), " ", "_", 1))
}

func receipt(index int) (model.ExtractionResult, string) {
	merchant := pick([]string{
		"Best Electronics", "Office Supplies Co", "Tech World", "Grocery Mart",
		"Fashion Hub", "Home Depot", "Staples", "Target", "Walmart", "Costco",
		"Amazon Fresh", "Whole Foods",
	}, index)
	date := fmt.Sprintf("2024-01-%02d", index%28+1)

	result := model.NewStructuredResult([]model.FieldValue{
		{Name: "receiptNumber", Value: model.StringValue(fmt.Sprintf("RCP-2024-%04d", index+1))},
		{Name: "merchantName", Value: model.StringValue(merchant)},
		{Name: "totalAmount", Value: model.StringValue(fmt.Sprintf("$%.2f", float64(50+index*35)))},
		{Name: "receiptDate", Value: model.StringValue(date)},
		{Name: "paymentMethod", Value: model.StringValue(pick([]string{"Credit Card", "Debit Card", "Cash", "Mobile Pay"}, index))},
	})
	return result, fmt.Sprintf("receipt_%s_%s.jpg", slug(merchant), strings.ReplaceAll(date, "-", ""))
}

type receiptItem struct {
	name  string
	price float64
}

var longReceiptCatalog = []receiptItem{
	{"Organic Bananas 2lb", 2.99}, {"Whole Milk Gallon", 4.49}, {"Sourdough Bread", 5.99},
	{"Free Range Eggs Dz", 6.99}, {"Avocado Hass 4pk", 5.49}, {"Greek Yogurt 32oz", 7.99},
	{"Chicken Breast 3lb", 14.99}, {"Atlantic Salmon 1lb", 12.99}, {"Broccoli Crowns 2lb", 4.99},
	{"Baby Spinach 16oz", 5.49}, {"Almond Butter 16oz", 9.99}, {"Olive Oil Extra Vir", 11.99},
	{"Quinoa Organic 2lb", 8.99}, {"Brown Rice 5lb", 6.99}, {"Pasta Penne 16oz", 2.49},
	{"Marinara Sauce 24oz", 4.99}, {"Cheddar Cheese 1lb", 7.49}, {"Mozzarella Fresh", 6.99},
	{"Orange Juice 64oz", 5.99}, {"Sparkling Water 12pk", 6.99}, {"Coffee Beans 2lb", 14.99},
	{"Green Tea 100ct", 8.99}, {"Honey Raw 16oz", 9.99}, {"Maple Syrup 12oz", 11.99},
	{"Peanut Butter 28oz", 6.99}, {"Strawberries 2lb", 7.99}, {"Blueberries 18oz", 8.49},
	{"Apple Gala 3lb", 5.99}, {"Lemon Organic 2lb", 4.49}, {"Garlic Head 3pk", 2.99},
	{"Onion Yellow 3lb", 3.49}, {"Potato Russet 5lb", 4.99}, {"Carrots Baby 2lb", 3.99},
	{"Celery Bunch", 2.99}, {"Tomatoes Roma 2lb", 4.49}, {"Cucumber English", 1.99},
	{"Bell Pepper Red", 2.49}, {"Mushroom Cremini", 4.99}, {"Zucchini Green 2lb", 3.99},
	{"Ground Beef 2lb", 12.99},
}

func longReceipt(index int) (model.ExtractionResult, string) {
	merchant := pick([]string{
		"Costco Wholesale", "Trader Joe's", "Whole Foods Market", "Sam's Club", "BJ's Wholesale",
	}, index)
	date := fmt.Sprintf("2024-01-%02d", index%28+1)

	// 15-35 line items per receipt, walked off the catalog.
	itemCount := 15 + index%21
	items := make([]model.LineItem, 0, itemCount)
	var subtotal float64
	for i := 0; i < itemCount; i++ {
		entry := longReceiptCatalog[(index+i)%len(longReceiptCatalog)]
		qty := 1 + i%3
		lineTotal := entry.price * float64(qty)
		subtotal += lineTotal
		items = append(items, model.LineItem{Name: entry.name, Qty: qty, Price: entry.price, Total: lineTotal})
	}
	tax := subtotal * 0.0825

	result := model.NewStructuredResult([]model.FieldValue{
		{Name: "receiptNumber", Value: model.StringValue(fmt.Sprintf("LR-2024-%04d", index+1))},
		{Name: "merchantName", Value: model.StringValue(merchant)},
		{Name: "merchantAddress", Value: model.StringValue(pick([]string{"123 Market St", "456 Commerce Blvd", "789 Shopping Way", "321 Retail Ave", "654 Bulk Rd"}, index))},
		{Name: "merchantPhone", Value: model.StringValue(pick([]string{"(555) 123-4567", "(555) 234-5678", "(555) 345-6789", "(555) 456-7890", "(555) 567-8901"}, index))},
		{Name: "receiptDate", Value: model.StringValue(date)},
		{Name: "receiptTime", Value: model.StringValue(fmt.Sprintf("%02d:%02d AM", 9+index%10, index*7%60))},
		{Name: "items", Value: model.ListValue(items)},
		{Name: "subtotal", Value: model.StringValue(fmt.Sprintf("%.2f", subtotal))},
		{Name: "taxRate", Value: model.StringValue("8.25%")},
		{Name: "taxAmount", Value: model.StringValue(fmt.Sprintf("%.2f", tax))},
		{Name: "totalAmount", Value: model.StringValue(fmt.Sprintf("$%.2f", subtotal+tax))},
		{Name: "paymentMethod", Value: model.StringValue(pick([]string{"Visa ****1234", "Mastercard ****5678", "Amex ****9012", "Discover ****3456", "Debit ****7890"}, index))},
		{Name: "cashier", Value: model.StringValue(pick([]string{"John D.", "Sarah M.", "Mike T.", "Lisa K.", "David W."}, index))},
		{Name: "transactionId", Value: model.StringValue(fmt.Sprintf("TXN17092%07d", 100_000+index))},
	})
	return result, fmt.Sprintf("long_receipt_%s_%s.jpg", slug(merchant), strings.ReplaceAll(date, "-", ""))
}

func invoicePrompt(index int) (model.ExtractionResult, string) {
	company := pick([]string{
		"ABC Corporation", "XYZ Industries", "Global Tech Solutions", "Premier Services Inc",
		"Innovative Systems LLC", "Acme Corp", "Delta Solutions", "Omega Enterprises",
	}, index)
	amount := float64(800 + index*150)
	day := index%28 + 1

	text := fmt.Sprintf(
		"This invoice numbered INV-2024-%03d from %s shows a total amount of $%.2f dated January %02d, 2024. "+
			"The invoice includes line items for consulting services ($%.2f) and software licensing ($%.2f). "+
			"Payment is due by February %02d, 2024 with payment terms of Net 30 days.",
		index+1, company, amount, day, amount*0.65, amount*0.35, day,
	)
	return model.NewTextResult(text), fmt.Sprintf("invoice_%03d_jan2024.pdf", index+1)
}

func customPrompt(index int, now time.Time) model.ExtractionResult {
	return model.NewTextResult(fmt.Sprintf(
		"Based on the document analysis, the extracted information includes: Item %d with reference number REF-%d, "+
			"dated %s, containing total amount of $%.2f. Additional details show standard processing was completed "+
			"with verification code VER-%04d.",
		index+1, 1000+index, now.Format("1/2/2006"), float64(100+index*50), index+1,
	))
}

func customStructure(fields []model.CustomField, index int, now time.Time) model.ExtractionResult {
	out := make([]model.FieldValue, 0, len(fields))
	for i, f := range fields {
		if strings.TrimSpace(f.Name) == "" {
			continue
		}
		var v model.Value
		switch f.Type {
		case model.FieldNumber:
			v = model.NumberValue(float64(100 + index*10 + i))
		case model.FieldCurrency:
			v = model.StringValue(fmt.Sprintf("$%.2f", float64(50+index*25+i*10)))
		case model.FieldDate:
			v = model.StringValue(now.AddDate(0, 0, -index).Format("2006-01-02"))
		case model.FieldBoolean:
			v = model.StringValue(sexAt(index, "Yes", "No"))
		case model.FieldEmail:
			v = model.StringValue(fmt.Sprintf("user%d@example.com", index+1))
		case model.FieldPhone:
			v = model.StringValue(fmt.Sprintf("+1 (555) %03d-%04d", 100+index, 1000+i))
		case model.FieldPercent:
			v = model.StringValue(fmt.Sprintf("%.1f%%", float64(10+index*5+i*2)))
		default:
			v = model.StringValue(fmt.Sprintf("Value_%d_%d", index+1, i+1))
		}
		out = append(out, model.FieldValue{Name: f.Name, Value: v})
	}
	return model.NewStructuredResult(out)
}

func sexAt(index int, even, odd string) string {
	if index%2 == 0 {
		return even
	}
	return odd
}

func dollars(n int) string {
	s := fmt.Sprintf("%d", n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return "$" + b.String()
}
