package toolrunner

import "github.com/reposcore/reposcore/pkg/model"

// Select returns the runner for a detected language, or nil for a language
// with no runner — callers must still produce documentation metrics via
// AnalyzeDocumentation regardless (§4.5's "minimal no-language runner").
func Select(lang model.Language) Runner {
	switch lang {
	case model.LanguageGo:
		return GoRunner{}
	case model.LanguagePython:
		return PythonRunner{}
	case model.LanguageJavaScript, model.LanguageTypeScript:
		return JavaScriptRunner{Lang: lang}
	case model.LanguageJava:
		return JavaRunner{}
	default:
		return nil
	}
}
