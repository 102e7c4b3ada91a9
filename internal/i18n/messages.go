// Package i18n localizes outward error messages. The core only deals in
// message codes; rendering happens once at the HTTP boundary.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mediagen/internal/domain"
)

var (
	// Supported lists the response languages in preference order.
	Supported = []language.Tag{language.English, language.BrazilianPortuguese}

	matcher = language.NewMatcher(Supported)
)

var catalog = map[string][2]string{
	domain.CodeMethodNotAllowed:      {"Method not allowed.", "Método não permitido."},
	domain.CodeInvalidPayload:        {"Invalid request payload.", "Corpo da requisição inválido."},
	domain.CodePromptAndTypeRequired: {"Prompt and type are required.", "Prompt e tipo são obrigatórios."},
	domain.CodeInvalidType:           {"Invalid request type.", "Tipo de requisição inválido."},
	domain.CodeImageRequestFailed:    {"Image API call failed.", "Erro na chamada da API de imagem."},
	domain.CodeImageUnavailable:      {"Could not generate the image.", "Não foi possível gerar a imagem."},
	domain.CodeVideoStartFailed:      {"Could not start video generation.", "Não foi possível iniciar a geração do vídeo."},
	domain.CodeVideoPollFailed:       {"Could not check video generation status.", "Não foi possível verificar o status da geração do vídeo."},
	domain.CodeVideoJobFailed:        {"Video generation failed.", "A geração do vídeo falhou."},
	domain.CodeVideoUnavailable:      {"Video generation finished without a video.", "A geração do vídeo terminou sem um vídeo."},
	domain.CodeVideoFetchFailed:      {"Could not download the generated video.", "Não foi possível baixar o vídeo gerado."},
	domain.CodeVideoEncodeFailed:     {"Could not encode the generated video.", "Não foi possível codificar o vídeo gerado."},
	domain.CodeVideoTimeout:          {"Video generation took too long.", "A geração do vídeo demorou demais."},
	domain.CodeUpstreamTimeout:       {"The upstream service took too long to respond.", "O serviço de geração demorou demais para responder."},
	domain.CodeCancelled:             {"Request cancelled.", "Requisição cancelada."},
	domain.CodeRateLimited:           {"Too many requests.", "Muitas requisições."},
	domain.CodeMissingCredential:     {"Service is not configured.", "Serviço não configurado."},
	domain.CodeInternal:              {"Internal server error.", "Erro interno do servidor."},
}

func init() {
	for code, texts := range catalog {
		_ = message.SetString(language.English, code, texts[0])
		_ = message.SetString(language.BrazilianPortuguese, code, texts[1])
	}
}

// Message renders code in the given language. Unknown codes fall back to the
// generic internal error text.
func Message(tag language.Tag, code string) string {
	if _, ok := catalog[code]; !ok {
		code = domain.CodeInternal
	}
	return message.NewPrinter(Match(tag)).Sprintf(code)
}

// Match reduces an arbitrary tag to one of the supported languages.
func Match(tags ...language.Tag) language.Tag {
	tag, _, _ := matcher.Match(tags...)
	base, _ := tag.Base()
	if base.String() == "pt" {
		return language.BrazilianPortuguese
	}
	return language.English
}

// Parse resolves a locale string such as "pt", "pt_PT" or "en-US".
func Parse(locale string) (language.Tag, bool) {
	locale = strings.ReplaceAll(strings.TrimSpace(locale), "_", "-")
	if locale == "" {
		return language.Und, false
	}
	tag, err := language.Parse(locale)
	if err != nil {
		return language.Und, false
	}
	return Match(tag), true
}

// FromAcceptLanguage resolves an Accept-Language header.
func FromAcceptLanguage(header string) (language.Tag, bool) {
	if strings.TrimSpace(header) == "" {
		return language.Und, false
	}
	tags, _, err := language.ParseAcceptLanguage(header)
	if err != nil || len(tags) == 0 {
		return language.Und, false
	}
	return Match(tags...), true
}

// lusophone countries get Portuguese responses when nothing else is known.
var lusophone = map[string]struct{}{
	"BR": {}, "PT": {}, "AO": {}, "MZ": {}, "CV": {}, "GW": {}, "ST": {}, "TL": {},
}

// FromCountry maps an ISO country code to a response language.
func FromCountry(country string) (language.Tag, bool) {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return language.Und, false
	}
	if _, ok := lusophone[country]; ok {
		return language.BrazilianPortuguese, true
	}
	return language.English, true
}
