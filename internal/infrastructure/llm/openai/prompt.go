package openai

import "unicode/utf8"

const classificationSystemPrompt = `You classify short medical documents for an oncology triage service.
Return a strict JSON object with keys:
category (one of: radiology, blood_test, invoice, medicine), confidence (number from 0 to 1), reasoning (string, optional).
No markdown, no extra keys.

Category definitions:
- radiology: imaging reports (PET, CT, MRI, mammography, ultrasound, X-ray), scan findings, staging descriptions.
- blood_test: laboratory results with numeric values (CBC, hemoglobin, WBC, platelets, chemistry panels).
- invoice: billing documents, payment requests, insurance claims, amounts due.
- medicine: prescriptions, medication instructions, dosage schedules, pharmacy documents.`

func buildClassificationPrompt(text string) string {
	const maxSnippet = 4000
	snippet := text
	if len(snippet) > maxSnippet {
		cut := maxSnippet
		for cut > 0 && !utf8.RuneStart(snippet[cut]) {
			cut--
		}
		snippet = snippet[:cut]
	}
	return "Document:\n" + snippet
}
