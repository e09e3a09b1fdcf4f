package descriptions

import "sort"

// Tool descriptions with practical examples and use cases

const (
	DocketParseDescription = `Parse a court docket sheet or court summary into a structured case record.

**When to use:** Need the defendant, case metadata, charges, sentencing, bail, attorneys, calendar, docket entries or financial information of one docket PDF.

**What you get:** The dialect that was detected, whether parsing succeeded, the case record as JSON and the number of tolerated warnings. Sections missing from the document are null.

**Examples:**
• Read a Common Pleas docket: "Parse CP-51-CR-0001234-2019.pdf and list the charges"
• Check a Magisterial District docket: "Parse MJ-05201-CR-0000123-2020.pdf and show the bail actions"
• Court summary: "Parse the court summary of this defendant and list the open cases"

**Common workflows:**
1. Case review: docket_parse → inspect charges and sentencing → follow related cases
2. Troubleshooting: docket_parse fails → docket_sections → check which headers were found

**Best practices:** Leave dialect empty to let the detector choose. Set strict to true to turn tolerated anomalies into section errors.`

	DocketSectionsDescription = `Show how a docket document is split into sections before field extraction.

**When to use:** A parse result looks incomplete or the parse failed and you need to see which section headers were recognized.

**What you get:** The detected dialect, every section in document order with its header line and body lines, and the structural notes raised during segmentation.

**Examples:**
• Missing charges: "Show the sections of CP-51-CR-0001234-2019.pdf, are the CHARGES found?"
• New layout: "List the section headers of this docket to see why detection picked the wrong dialect"

**Best practices:** Use after docket_parse when a section comes back null although it is visible in the PDF.`

	DocketDialectsDescription = `List the docket dialects the extractor knows.

**When to use:** Need the name of a dialect to force it in docket_parse or docket_sections.

**What you get:** The dialect names and their kind (docket sheet or court summary).`

	DocketLedgerStatusDescription = `Report the progress of batch runs from the CSV progress ledger.

**When to use:** Check which documents were parsed, which failed and how many attempts each file had.

**What you get:** Totals and one entry per file with its attempt count, whether any attempt succeeded and the time of the last attempt. Pass failed_only to list only files that never succeeded.

**Examples:**
• Retry planning: "Which dockets still fail after the last batch run?"
• Progress: "How many documents of the batch are done?"`
)

// ToolDescriptions maps tool names to their descriptions
var ToolDescriptions = map[string]string{
	"docket_parse":         DocketParseDescription,
	"docket_sections":      DocketSectionsDescription,
	"docket_dialects":      DocketDialectsDescription,
	"docket_ledger_status": DocketLedgerStatusDescription,
}

// GetToolDescription returns the description for a tool
func GetToolDescription(toolName string) string {
	if desc, exists := ToolDescriptions[toolName]; exists {
		return desc
	}
	return "Tool description not available"
}

// GetAllToolNames returns the sorted names of all tools
func GetAllToolNames() []string {
	names := make([]string, 0, len(ToolDescriptions))
	for name := range ToolDescriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
