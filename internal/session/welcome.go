package session

import (
	"strings"

	"golang.org/x/text/language"
)

// welcomeTexts are shown when a user has no stored history, indexed in the
// same order as welcomeTags.
var (
	welcomeTags = []language.Tag{language.English, language.Hindi}

	welcomeTexts = []string{
		`**Welcome to Medical Assistant**

I can help you with:
* Medical questions and information
* Health advice and guidance
* Disease information and symptoms
* Wellness tips

**Important:** I provide general medical information, not a professional diagnosis. Always consult a doctor for serious concerns.

Before we proceed, I need your consent to store our conversation data. Your data will be stored securely, used only for medical assistance and never shared with third parties.

Type "I agree" or "I consent" to continue.`,
		`**चिकित्सा सहायक में आपका स्वागत है**

मैं आपकी मदद कर सकता हूं:
* चिकित्सा प्रश्न और जानकारी
* स्वास्थ्य सलाह
* रोग की जानकारी
* स्वास्थ्य सुझाव

**महत्वपूर्ण:** मैं सामान्य चिकित्सा जानकारी देता हूं, निदान नहीं। गंभीर समस्याओं के लिए हमेशा डॉक्टर से मिलें।

जारी रखने से पहले, बातचीत का डेटा संग्रहीत करने के लिए आपकी सहमति आवश्यक है। आपका डेटा सुरक्षित रूप से संग्रहीत होगा, केवल चिकित्सा सहायता के लिए उपयोग होगा और किसी से साझा नहीं किया जाएगा।

टाइप करें: "सहमत हूं" या "मैं सहमत हूं"`,
	}

	welcomeMatcher = language.NewMatcher(welcomeTags)
)

// WelcomeText returns the built-in welcome message closest to lang,
// falling back to English.
func WelcomeText(lang string) string {
	tag, err := language.Parse(lang)
	if err != nil {
		return welcomeTexts[0]
	}
	_, idx, conf := welcomeMatcher.Match(tag)
	if conf == language.No {
		return welcomeTexts[0]
	}
	return welcomeTexts[idx]
}

// NormalizeLanguage validates a BCP-47 tag and returns its canonical form.
func NormalizeLanguage(lang string) (string, error) {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return "", err
	}
	return tag.String(), nil
}
