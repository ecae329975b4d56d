package engine

// Prompt templates for answer synthesis. Kept close to the phrasing the
// retrieval frameworks use so prompt-tuned models behave as expected.
const (
	answerPrompt = "Context information is below.\n" +
		"---------------------\n%s\n---------------------\n" +
		"Given the context information and not prior knowledge, answer the query.\n" +
		"Query: %s\nAnswer: "

	refinePrompt = "The original query is as follows: %s\n" +
		"We have provided an existing answer: %s\n" +
		"We have the opportunity to refine the existing answer (only if needed) " +
		"with some more context below.\n" +
		"------------\n%s\n------------\n" +
		"Given the new context, refine the original answer to better answer the query. " +
		"If the context isn't useful, return the original answer.\nRefined Answer: "

	condensePrompt = "Given the following conversation and a follow up question, " +
		"rephrase the follow up question to be a standalone question that captures " +
		"all relevant context from the conversation.\n\n" +
		"Chat history:\n%s\n\nFollow up question: %s\n\nStandalone question: "

	contextSystemPrompt = "%s\n\n" +
		"Here are the relevant documents for the context:\n\n%s\n\n" +
		"Instruction: Use the previous chat history, or the context above, to " +
		"interact and help the user."
)
