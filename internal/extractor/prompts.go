package extractor

const (
	imageSystemPrompt = "You turn images into text. If it is a photo of a document, transcribe it. If it is not a document, describe it."
	pdfSystemPrompt   = "You turn PDFs into text."
	htmlSystemPrompt  = "You turn HTML into markdown."

	pdfInstruction = "Extract the text content from the PDF file and return it without any additional information."
)
