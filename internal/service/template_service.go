// internal/service/template_service.go
package service

import (
	"fmt"
	"strings"

	"github.com/paynudge/reminder-backend/internal/model"
)

const DefaultSMSTemplate = "Hi {customer_name}, this is a reminder from {business_name}: " +
	"invoice {invoice_number} for {amount} is due on {due_date}. Please arrange payment."

const DefaultVoiceScriptTemplate = "Hello {customer_name}. This is a courtesy call from {business_name} " +
	"regarding invoice {invoice_number} with an outstanding balance of {amount}, due on {due_date}."

func RenderTemplate(template string, data map[string]string) string {
	result := template
	for k, v := range data {
		if v == "" {
			v = "N/A"
		}
		result = strings.ReplaceAll(result, "{"+k+"}", v)
	}
	return result
}

func reminderTemplateData(account *model.Account, customer *model.Customer, inv *model.Invoice) map[string]string {
	return map[string]string{
		"customer_name":  customer.Name,
		"business_name":  account.BusinessName,
		"invoice_number": inv.ExternalID,
		"amount":         fmt.Sprintf("%s %.2f", inv.Currency, inv.AmountDue),
		"due_date":       inv.DueDate.Format("January 2, 2006"),
	}
}

// RenderSMSBody builds the reminder text for an invoice.
func RenderSMSBody(account *model.Account, customer *model.Customer, inv *model.Invoice) string {
	return RenderTemplate(DefaultSMSTemplate, reminderTemplateData(account, customer, inv))
}

// RenderVoiceScript builds the opening script handed to the voice provider.
func RenderVoiceScript(account *model.Account, customer *model.Customer, inv *model.Invoice) string {
	return RenderTemplate(DefaultVoiceScriptTemplate, reminderTemplateData(account, customer, inv))
}
