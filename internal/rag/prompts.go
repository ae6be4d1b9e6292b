package rag

// rewriteSystemPrompt turns a follow-up question into a standalone one so
// retrieval does not depend on the conversation transcript.
const rewriteSystemPrompt = "Given a conversation history and the most recent user query, " +
	"rewrite the query as a standalone question that makes sense without relying on the " +
	"previous context. Do not provide an answer, only reformulate the question if necessary; " +
	"otherwise, return it unchanged."

// answerSystemPrompt keeps the model grounded in the retrieved context. The
// %s placeholder receives the formatted context block.
const answerSystemPrompt = "You are an assistant designed to answer questions using the " +
	"provided context. Rely only on the retrieved information to form your response. If the " +
	"answer is not found in the context, respond with 'I don't know.' Keep your answer " +
	"concise and no longer than three sentences.\n\n%s"
