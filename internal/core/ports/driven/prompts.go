package driven

// PromptStore serves the templates the answer generator formats. A store
// that cannot find a known prompt returns its entry in DefaultPrompts.
type PromptStore interface {
	Load(name string) (string, error)

	// Reload drops cached templates so edits on disk take effect.
	Reload()
}

// Prompt names. The comment on each lists its fmt verbs in order.
const (
	PromptAnswerSystem = "answer_system" // none
	PromptAnswerUser   = "answer_user"   // %s context, %s question
	PromptSummarise    = "summarise"     // %d source number, %s chunk text
)

// PromptStoreAware is implemented by services whose prompts can be swapped
// after construction. Without a store they use DefaultPrompts.
type PromptStoreAware interface {
	SetPromptStore(store PromptStore)
}

// DefaultPrompts are the built-in templates. File stores seed from them.
//
//nolint:lll
var DefaultPrompts = map[string]string{
	PromptAnswerSystem: `You are a research assistant. You answer questions about the user's documents using only the passages you are given.`,

	PromptAnswerUser: `Use ONLY the context below to answer the question.
Cite the passages you rely on like [Source X].
If the answer is not present in the context, say that the documents do not contain it.

Context:
%s

Question: %s

Answer:`,

	PromptSummarise: `Summarise the following passage in one or two sentences.
Begin the summary with [Source %d] and keep that tag.

Passage:
%s

Summary:`,
}
