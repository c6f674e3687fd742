package email

import "strings"

const (
	summaryTemperature = 0.5
	summaryMaxTokens   = 200

	placeholderProfessor = "Dr. [Last Name]"
)

func labSummaryPrompt(title string) string {
	return "You are an expert research analyst. You have been given the raw text scraped from the website of a research group " +
		"called '" + title + "'. Your task is to analyze this text and extract the most salient points that a prospective student " +
		"could use to personalize an outreach email.\n\n" +
		"From the text provided, please identify and list the following:\n" +
		"1.  **Core Research Questions:** What are the 1-3 fundamental questions or key problems the lab is trying to solve?\n" +
		"2.  **Key Technologies & Methods:** What specific tools, software, hardware, or scientific methods are explicitly mentioned (e.g., 'LLVM', 'PyTorch', 'FPGA prototyping', 'formal methods')?\n" +
		"3.  **Specific Project Names:** List any named projects, systems, or initiatives (e.g., 'Project Phoenix', 'ZEBRA architecture').\n\n" +
		"Present these points as a structured summary. This output will be used to draft a compelling email, so be concise and focus on concrete details."
}

const professorExtractPrompt = "You will be given raw text extracted from a university research lab web page. " +
	"Identify the names of faculty members (professors, principal investigators, research faculty). " +
	"Return ONLY a JSON array of full names with no duplicates and no additional keys."

type promptParams struct {
	StudentName string
	Profile     string
	LabURL      string
	LabSummary  string
	Professor   string
}

func systemPrompt(p promptParams) string {
	labURL := p.LabURL
	if labURL == "" {
		labURL = "N/A"
	}
	summary := p.LabSummary
	if summary == "" {
		summary = "(No lab summary was available.)"
	}

	var b strings.Builder
	b.WriteString("You are an expert career advisor for computer science students at a top-tier university like Georgia Tech.\n")
	b.WriteString("You are helping a student named " + p.StudentName + " craft the perfect research outreach email to a professor.\n")
	b.WriteString("Your goal is to generate a complete email (Subject + Body) that is professional, strategic, and highly personalized, making it stand out in a professor's inbox.\n\n")
	b.WriteString("First, take a deep breath and analyze the provided context step-by-step. This is your internal thought process.\n")
	b.WriteString("1.  Carefully read the STUDENT PROFILE and the LAB SUMMARY.\n")
	b.WriteString("2.  Identify the 2-3 strongest, most specific points of alignment. What skill or project from the student directly maps onto a specific project, technology, or research question from the lab?\n")
	b.WriteString("3.  Formulate a \"unique value proposition\" for the student. What can they *specifically* bring to *this* lab that another student might not?\n\n")
	b.WriteString("Now, using your analysis, write the email. The output should be ONLY the email, starting with \"Subject:\".\n\n")
	b.WriteString("---\n\n")
	b.WriteString("**STUDENT PROFILE:**\n" + p.Profile + "\n---\n")
	b.WriteString("**LAB URL:** " + labURL + "\n")
	b.WriteString("**LAB SUMMARY:**\n" + summary + "\n---\n")
	b.WriteString("Now, generate the complete email for " + p.Professor + ".\n")
	return b.String()
}
