package templates

// Built-in prompt fragments. Adding a language means adding one entry here;
// nothing is loaded dynamically at runtime.
var locales = Table{
	"en": {
		"rag": {
			"system_prompt": "You are an assistant that generates a response for the user. " +
				"You will be provided with a set of documents associated with the user's query. " +
				"Generate the response based only on the documents provided, ignoring the ones " +
				"that are not relevant to the query. Apologize to the user if you are unable to " +
				"generate an answer. Respond in the same language as the user's query. " +
				"Be polite and respectful. Be precise and concise, avoiding unnecessary information.",

			"document_prompt": "## Document No: {{.doc_num}}\n### Content: {{.chunk_text}}",

			"footer_prompt": "Based only on the above documents, please generate an answer for the user.\n" +
				"## Question:\n{{.query}}\n\n## Answer:",
		},
	},
	"ar": {
		"rag": {
			"system_prompt": "أنت مساعد لتوليد إجابة للمستخدم. ستحصل على مجموعة من المستندات المرتبطة باستعلام المستخدم. " +
				"عليك توليد الإجابة بناءً على المستندات المقدمة فقط، وتجاهل المستندات غير المتعلقة بالاستعلام. " +
				"يمكنك الاعتذار للمستخدم إذا لم تتمكن من توليد إجابة. أجب بنفس لغة استعلام المستخدم. " +
				"كن مهذباً ومحترماً، ودقيقاً وموجزاً في إجابتك.",

			"document_prompt": "## المستند رقم: {{.doc_num}}\n### المحتوى: {{.chunk_text}}",

			"footer_prompt": "بناءً على المستندات أعلاه فقط، يرجى توليد إجابة للمستخدم.\n" +
				"## السؤال:\n{{.query}}\n\n## الإجابة:",
		},
	},
}
