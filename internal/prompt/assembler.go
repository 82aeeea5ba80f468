// Package prompt turns proposal form data into the instruction text sent to
// the generation model. Everything here is pure: identical inputs always give
// byte-identical output.
package prompt

import (
	"fmt"
	"strings"

	"grantdraft/internal/proposal"
)

const (
	placeholderMissing = "(미입력)"

	placeholderTarget       = "(대상 미지정)"
	placeholderParticipants = "(인원 미정)"
	placeholderLocation     = "(장소 미정)"
	placeholderBudget       = "(예산 미정)"
	placeholderPeriod       = "(기간 미정)"

	// CalloutMarker prefixes every infographic suggestion the model is asked to emit.
	CalloutMarker = "> 🖼️ **[인포그래픽 제안]**"

	sectionRule = "---"
)

// Assemble renders the prompt with the standard style.
func Assemble(agency proposal.AgencyInfo, project proposal.ProjectInfo, file *proposal.AttachedFile) string {
	return Standard.Assemble(agency, project, file)
}

// Assemble renders the full prompt for the given form state. A nil file omits
// the reference-document block entirely.
func (t Template) Assemble(agency proposal.AgencyInfo, project proposal.ProjectInfo, file *proposal.AttachedFile) string {
	var b strings.Builder

	b.WriteString(t.preamble)
	b.WriteString("\n\n")
	b.WriteString(sectionRule)
	b.WriteString("\n\n")

	if file != nil {
		b.WriteString(t.reference)
		b.WriteString("\n")
		b.WriteString(sectionRule)
		b.WriteString("\n\n")
	}

	writeAgency(&b, agency)
	b.WriteString("\n")
	t.writeProject(&b, project)
	b.WriteString("\n")
	t.writeOutline(&b, project)

	return strings.TrimSpace(b.String())
}

func writeAgency(b *strings.Builder, a proposal.AgencyInfo) {
	b.WriteString("## 1. 신청 기관 정보\n")
	writeField(b, "기관명", a.Name, placeholderMissing)
	writeField(b, "대표자", a.Representative, placeholderMissing)
	writeField(b, "설립일", a.FoundingDate, placeholderMissing)
	writeField(b, "주요 사업", a.MainBusiness, placeholderMissing)
	writeField(b, "소재지", a.Address, placeholderMissing)
	writeField(b, "담당자", a.ContactPerson, placeholderMissing)
	writeField(b, "연락처", a.Phone, placeholderMissing)
	writeField(b, "이메일", a.Email, placeholderMissing)
}

func (t Template) writeProject(b *strings.Builder, p proposal.ProjectInfo) {
	b.WriteString("## 2. 사업 개요\n")
	writeField(b, "**사업명**", p.Title, placeholderMissing)
	writeField(b, "**핵심 키워드**", p.Keywords, placeholderMissing)
	t.writeOptional(b, "사업 대상", p.Target, placeholderTarget)
	t.writeOptional(b, "참여 인원", p.ParticipantCount, placeholderParticipants)
	t.writeOptional(b, "사업 장소", p.Location, placeholderLocation)
	t.writeOptional(b, "총 예산", p.Budget, placeholderBudget)
	t.writeOptional(b, "사업 기간", p.ProjectPeriod, placeholderPeriod)
}

// writeOptional drops the line for an empty value unless the template keeps
// optional fields visible with a placeholder.
func (t Template) writeOptional(b *strings.Builder, label, value, placeholder string) {
	if value == "" && !t.placeholdOptional {
		return
	}
	writeField(b, label, value, placeholder)
}

func writeField(b *strings.Builder, label, value, placeholder string) {
	fmt.Fprintf(b, "- %s: %s\n", label, orPlaceholder(value, placeholder))
}

func (t Template) writeOutline(b *strings.Builder, p proposal.ProjectInfo) {
	b.WriteString("## 3. 작성 요청 목차 및 가이드\n")
	fmt.Fprintf(b, "아래 목차에 따라 내용을 작성하되, 각 항목은 **최소 %d자 이상** 상세하게 기술하세요.\n\n", t.minChars)

	b.WriteString("### 1) 사업의 필요성\n")
	b.WriteString("- 대상자의 욕구 및 문제점 (통계 자료나 실태 조사 결과를 가상의 데이터로 인용하여 신뢰도 확보)\n")
	b.WriteString("- 지역사회 환경적 특성 및 사업의 시급성\n")
	b.WriteString("- 기존 사업과의 차별성\n")
	writeCallout(b, "문제 나무(Problem Tree) 또는 욕구 분석 도표")
	b.WriteString("\n")

	b.WriteString("### 2) 서비스 지역, 서비스 대상 및 실인원수\n")
	b.WriteString("- 산출 근거를 논리적으로 제시 (일반집단 -> 위기집단 -> 표적집단 -> 실인원)\n")
	b.WriteString("- 위 과정을 **표(Table)** 또는 도식화된 텍스트로 표현\n")
	b.WriteString("  | 구분 | 산출 근거 | 인원 |\n")
	b.WriteString("  |---|---|---|\n")
	b.WriteString("  | 일반집단 | (내용) | (내용) |\n")
	b.WriteString("  | 위기집단 | (내용) | (내용) |\n")
	b.WriteString("  | 표적집단 | (내용) | (내용) |\n")
	b.WriteString("  | 실인원 | (내용) | (내용) |\n\n")

	b.WriteString("### 3) 사업 목적 및 목표\n")
	b.WriteString("- 산출목표(Output)와 성과목표(Outcome)로 구분하여 제시\n")
	b.WriteString("- 목표는 구체적이고 측정 가능해야 함 (SMART 기법 적용)\n\n")

	b.WriteString("### 4) 사업 내용\n")
	b.WriteString("- 세부사업명, 일정, 수행인력, 수행방법, 진행내용을 상세히 기술\n")
	fmt.Fprintf(b, "- 키워드 반영: %s\n", orPlaceholder(p.Keywords, placeholderMissing))
	writeCallout(b, "사업 추진 절차도(Flowchart)")
	b.WriteString("\n")

	b.WriteString("### 5) 예산 계획\n")
	b.WriteString("- 산출 내역을 구체적으로 기재 (단가 x 수량 x 횟수 등)\n")
	switch {
	case p.Budget != "":
		fmt.Fprintf(b, "- 총 예산: %s (비목: 인건비, 사업비, 관리운영비 등)\n", p.Budget)
	case t.placeholdOptional:
		b.WriteString("- 총 예산: 적정 규모 (비목: 인건비, 사업비, 관리운영비 등)\n")
	default:
		b.WriteString("- 비목(인건비, 사업비, 관리운영비 등)별로 적정 규모를 산정하여 편성\n")
	}
	b.WriteString("- **표(Table) 형식 필수**\n\n")

	b.WriteString("### 6) 평가 계획 (중요)\n")
	b.WriteString("- 성과 목표에 따른 평가 지표, 측정도구, 평가 방법 및 시기를 구체적으로 제시\n")
	b.WriteString("- **아래 양식의 마크다운 표(Table)로 작성해주세요:**\n")
	b.WriteString("  | 성과목표 | 성과지표 | 측정도구 | 평가방법 | 평가시기 |\n")
	b.WriteString("  |---|---|---|---|---|\n")
	b.WriteString("  | (내용) | (내용) | (내용) | (내용) | (내용) |\n\n")

	b.WriteString("### 7) 기대 효과\n")
	b.WriteString("- 참여자(대상자)의 변화\n")
	b.WriteString("- 지역사회의 변화 및 파급 효과\n")
	writeCallout(b, "변화 전후 비교 또는 기대효과 구조도")
}

func writeCallout(b *strings.Builder, subject string) {
	fmt.Fprintf(b, "- *%s %s*\n", CalloutMarker, subject)
}

func orPlaceholder(value, placeholder string) string {
	if value == "" {
		return placeholder
	}
	return value
}
