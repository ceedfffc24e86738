package pipeline

// queryExpansionPromptTemplate asks for three diversified reformulations
// of the user question as a numbered list, which expandQuery parses.
const queryExpansionPromptTemplate = `You generate web search queries.
Given a user question, write three diversified search queries that together
cover the question's intent. Vary the phrasing and the angle; keep each
query short and self-contained. Answer in the language of the question.

Question: %s

Return exactly three queries as a numbered list:
1.
2.
3.`

// answerPromptTemplate grounds the answer in the retrieved context.
const answerPromptTemplate = `Answer the question using only the provided context.
Cite facts from the context; if the context does not contain the answer,
say that you could not find it. Answer in the language of the question.

Context:
%s

Question: %s

Answer:`
