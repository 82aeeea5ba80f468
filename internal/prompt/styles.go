package prompt

import (
	"fmt"
	"sort"
	"strings"
)

// Style names a prompt wording variant. All styles share the same section
// structure; they differ in tone, minimum lengths and how empty optional
// project fields are rendered.
type Style string

const (
	StyleStandard Style = "standard"
	StyleDetailed Style = "detailed"
	StyleConcise  Style = "concise"
)

// Template is one prompt variant.
type Template struct {
	Style Style

	preamble  string
	reference string
	minChars  int
	// placeholdOptional keeps empty optional project fields as placeholder
	// lines instead of dropping them.
	placeholdOptional bool
}

var formatDirectives = strings.Join([]string{
	"[필수 지침]",
	"1. **서술 방식**: 전문적인 사회복지 용어를 적절히 사용하되, 문장은 명료하고 힘 있게 작성하십시오.",
	"2. **포맷팅(중요)**:",
	"   - **빈 줄 최소화**: 불필요한 엔터(공백 라인)를 제거하여 문서를 컴팩트하게 만드세요.",
	"   - **가독성**: 주요 수치와 핵심 용어는 볼드체(**)로 강조하세요.",
	"3. **시각화(인포그래픽)**:",
	"   - 텍스트만 나열하지 말고, 내용의 이해를 돕기 위한 인포그래픽 삽입 위치와 내용을 관련 항목 앞이나 안에 제안하세요.",
	"   - 표기법: `" + CalloutMarker + " (제목): (내용 설명)`",
	"4. **평가 및 예산**: 반드시 **마크다운 표(Table)** 형식을 사용하여 구조화해서 보여주세요.",
}, "\n")

var (
	// Standard drops empty optional project fields so the model does not
	// speculate about details the applicant never gave.
	Standard = Template{
		Style: StyleStandard,
		preamble: "당신은 대한민국 사회복지공동모금회(사랑의열매) 배분 신청 사업계획서 작성 전문 컨설턴트입니다.\n" +
			"아래 제공된 기관 정보와 사업 개요를 바탕으로, 심사위원이 즉시 채택할 수 있는 수준의 **구체적이고, 논리적이며, 전문적인** 사업계획서를 작성해주세요.\n\n" +
			formatDirectives,
		reference: "[참고 자료]\n" +
			"첨부된 PDF 파일은 해당 사업의 공고문 또는 관련 자료입니다. 이 내용을 철저히 분석하여 제안서에 반영해주세요.",
		minChars: 300,
	}

	// Detailed keeps every optional field visible with a placeholder.
	Detailed = Template{
		Style: StyleDetailed,
		preamble: "당신은 대한민국 사회복지공동모금회(사랑의열매) 배분 신청 사업계획서 작성 전문 컨설턴트입니다.\n" +
			"아래 제공된 기관 정보와 사업 개요를 바탕으로, 심사위원이 즉시 채택할 수 있는 수준의 **구체적이고, 논리적이며, 전문적인** 사업계획서를 작성해주세요.\n" +
			"표준 배분신청서 양식의 항목 순서를 반드시 지키고, 어느 항목도 생략하지 마십시오.\n\n" +
			formatDirectives,
		reference: "[참고 자료]\n" +
			"첨부된 PDF 파일은 해당 사업의 공고문 또는 관련 자료입니다. 이 내용을 철저히 분석하여 제안서에 반영해주세요.\n" +
			"공고문에 명시된 지원 자격, 신청 요건, 심사 기준, 예산 편성 기준을 빠짐없이 확인하고 각 항목에 반영하십시오.",
		minChars:          300,
		placeholdOptional: true,
	}

	// Concise asks for a shorter first draft.
	Concise = Template{
		Style: StyleConcise,
		preamble: "당신은 사회복지공동모금회 배분 신청 사업계획서 작성을 돕는 컨설턴트입니다.\n" +
			"아래 기관 정보와 사업 개요를 바탕으로 사업계획서 초안을 **간결하고 논리적으로** 작성해주세요.\n\n" +
			formatDirectives,
		reference: "[참고 자료]\n" +
			"첨부된 PDF 파일(공고문 또는 관련 자료)의 요구사항을 분석하여 제안서에 반영해주세요.",
		minChars: 200,
	}
)

var templates = map[Style]Template{
	StyleStandard: Standard,
	StyleDetailed: Detailed,
	StyleConcise:  Concise,
}

// Lookup resolves a style name. An empty name selects the standard style.
func Lookup(name string) (Template, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Standard, nil
	}
	t, ok := templates[Style(name)]
	if !ok {
		return Template{}, fmt.Errorf("prompt: unknown style %q", name)
	}
	return t, nil
}

// Styles lists the available style names in a stable order.
func Styles() []Style {
	out := make([]Style, 0, len(templates))
	for s := range templates {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
