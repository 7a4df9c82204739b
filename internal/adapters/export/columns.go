package export

import (
	"strings"
	"time"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
)

// Column колонка документа выгрузки: заголовок и значение для карточки
type Column struct {
	Header string
	Value  func(l models.Listing) interface{}
}

func text(f func(l models.Listing) string) func(models.Listing) interface{} {
	return func(l models.Listing) interface{} { return f(l) }
}

func empty(header string) Column {
	return Column{Header: header, Value: func(models.Listing) interface{} { return "" }}
}

func fixed(header string, f func(d models.ListingDefaults) interface{}) Column {
	return Column{Header: header, Value: func(l models.Listing) interface{} { return f(l.Defaults) }}
}

// UploadColumns колонки шаблона массовой загрузки SmartStore в обязательном порядке
var UploadColumns = []Column{
	{Header: "판매자상품코드", Value: text(func(l models.Listing) string { return l.SellerCode })},
	{Header: "카테고리코드", Value: text(func(l models.Listing) string { return l.CategoryCode.String() })},
	{Header: "상품명", Value: text(func(l models.Listing) string { return l.Title })},
	fixed("상품상태", func(d models.ListingDefaults) interface{} { return d.Status }),
	{Header: "판매가", Value: func(l models.Listing) interface{} { return l.SalePrice }},
	fixed("부가세", func(d models.ListingDefaults) interface{} { return d.TaxType }),
	fixed("재고수량", func(d models.ListingDefaults) interface{} { return d.StockQuantity }),
	{Header: "최종카테고리선택", Value: text(func(l models.Listing) string { return l.LeafCategoryCode.String() })},
	fixed("구매평노출여부", func(d models.ListingDefaults) interface{} { return d.ReviewExposure }),
	fixed("상품문의노출여부", func(d models.ListingDefaults) interface{} { return d.InquiryExposure }),
	fixed("리뷰작성가능여부", func(d models.ListingDefaults) interface{} { return d.ReviewEnabled }),
	fixed("판매상태", func(d models.ListingDefaults) interface{} { return d.SaleStatus }),
	fixed("전시상태", func(d models.ListingDefaults) interface{} { return d.DisplayStatus }),
	fixed("성인인증", func(d models.ListingDefaults) interface{} { return d.AdultOnly }),
	fixed("청소년이용불가", func(d models.ListingDefaults) interface{} { return d.MinorRestricted }),

	fixed("옵션형태", func(d models.ListingDefaults) interface{} { return d.OptionType }),
	empty("옵션명"),
	empty("옵션값"),
	empty("옵션가"),
	empty("옵션재고수량"),
	empty("직접입력옵션"),
	empty("추가상품명"),
	empty("추가상품값"),
	empty("추가상품가"),
	empty("추가상품재고수량"),

	{Header: "대표이미지", Value: text(func(l models.Listing) string { return l.ImageURL })},
	{Header: "추가이미지", Value: text(func(l models.Listing) string { return strings.Join(l.AdditionalImages, ",") })},
	{Header: "상세설명", Value: text(func(l models.Listing) string { return l.Description })},
	{Header: "브랜드", Value: text(func(l models.Listing) string { return l.Brand })},
	{Header: "제조사", Value: text(func(l models.Listing) string { return l.Manufacturer })},
	fixed("제조일자", func(d models.ListingDefaults) interface{} { return d.ManufactureDate }),
	fixed("유효일자", func(d models.ListingDefaults) interface{} { return d.ExpiryDate }),
	fixed("원산지코드", func(d models.ListingDefaults) interface{} { return d.OriginCode }),
	empty("수입사"),
	fixed("복수원산지여부", func(d models.ListingDefaults) interface{} { return d.MultiOrigin }),
	fixed("원산지직접입력", func(d models.ListingDefaults) interface{} { return d.OriginName }),
	fixed("미성년자구매여부", func(d models.ListingDefaults) interface{} { return d.MinorPurchase }),

	fixed("배송비템플릿코드", func(d models.ListingDefaults) interface{} { return d.ShippingTemplate }),
	fixed("배송방법", func(d models.ListingDefaults) interface{} { return d.ShippingMethod }),
	fixed("기본배송비", func(d models.ListingDefaults) interface{} { return d.ShippingFee }),
	fixed("배송비유형", func(d models.ListingDefaults) interface{} { return d.ShippingFeeType }),
	fixed("배송비결제방식", func(d models.ListingDefaults) interface{} { return d.ShippingPayment }),
	fixed("출고지", func(d models.ListingDefaults) interface{} { return d.ShipFrom }),
	fixed("배송업체", func(d models.ListingDefaults) interface{} { return d.Carrier }),
	fixed("배송기간", func(d models.ListingDefaults) interface{} { return d.ShippingPeriod }),
	empty("조건부무료상품판매가합계"),
	empty("수량별부과수량"),
	empty("구간별2구간수량"),
	empty("구간별3구간수량"),
	empty("구간별3구간배송비"),
	empty("구간별추가배송비"),
	empty("반품배송비"),
	empty("교환배송비"),
	empty("지역별차등배송비"),
	empty("별도설치비"),

	fixed("상품정보제공고시템플릿코드", func(d models.ListingDefaults) interface{} { return d.NoticeTemplate }),
	{Header: "상품정보제공고시품명", Value: text(func(l models.Listing) string { return l.Title })},
	{Header: "상품정보제공고시모델명", Value: text(func(l models.Listing) string { return l.ModelName })},
	fixed("상품정보제공고시인증허가사항", func(d models.ListingDefaults) interface{} { return d.NoticeCertified }),
	{Header: "상품정보제공고시제조자", Value: text(func(l models.Listing) string { return l.Manufacturer })},
	fixed("상품정보제공고시제조국", func(d models.ListingDefaults) interface{} { return d.NoticeCountry }),
	fixed("상품정보제공고시사용기한", func(d models.ListingDefaults) interface{} { return d.NoticeShelfLife }),
	fixed("상품정보제공고시사용법", func(d models.ListingDefaults) interface{} { return d.NoticeUsage }),
	fixed("상품정보제공고시주의사항", func(d models.ListingDefaults) interface{} { return d.NoticeCaution }),

	fixed("AS템플릿코드", func(d models.ListingDefaults) interface{} { return d.ASTemplate }),
	fixed("AS담당자명", func(d models.ListingDefaults) interface{} { return d.ASContact }),
	fixed("AS전화번호", func(d models.ListingDefaults) interface{} { return d.ASPhone }),
	fixed("AS안내", func(d models.ListingDefaults) interface{} { return d.ASGuide }),
	fixed("판매자특이사항", func(d models.ListingDefaults) interface{} { return d.SellerNote }),

	empty("즉시할인값기본할인"),
	empty("즉시할인단위기본할인"),
	empty("모바일즉시할인값"),
	empty("모바일즉시할인단위"),
	empty("복수구매할인조건값"),
	empty("복수구매할인조건단위"),
	empty("복수구매할인값"),
	empty("복수구매할인단위"),
	empty("상품구매시포인트지급값"),
	empty("상품구매시포인트지급단위"),
	empty("텍스트리뷰작성시지급포인트"),
	empty("포토동영상리뷰작성시지급포인트"),
	empty("한달사용텍스트리뷰작성시지급포인트"),
	empty("한달사용포토동영상리뷰작성시지급포인트"),

	empty("가전효율등급"),
	empty("효율등급인증기관"),
	empty("케어라벨인증유형"),
	fixed("상품정보제공고시색상", func(d models.ListingDefaults) interface{} { return d.NoticeColor }),
	fixed("상품정보제공고시소재", func(d models.ListingDefaults) interface{} { return d.NoticeMaterial }),
	fixed("상품정보제공고시사이즈", func(d models.ListingDefaults) interface{} { return d.NoticeSize }),
	empty("상품정보제공고시동백사이즈"),
	empty("상품정보제공고시동백노출"),
	empty("상품정보제공고시수리방법"),
	fixed("사이즈상품군", func(d models.ListingDefaults) interface{} { return d.SizeGroup }),
	fixed("사이즈사이즈명", func(d models.ListingDefaults) interface{} { return d.SizeName }),
	fixed("사이즈상세사이즈", func(d models.ListingDefaults) interface{} { return d.SizeDetail }),
	{Header: "사이즈모델명", Value: text(func(l models.Listing) string { return l.SizeModelName })},
}

// ReferenceColumns колонки справочного документа с данными источника
var ReferenceColumns = []Column{
	{Header: "카테고리코드", Value: text(func(l models.Listing) string { return l.CategoryCode.String() })},
	{Header: "카테고리경로", Value: text(func(l models.Listing) string { return l.CategoryPath })},
	{Header: "상품명", Value: text(func(l models.Listing) string { return l.Title })},
	{Header: "판매가", Value: func(l models.Listing) interface{} { return l.SalePrice }},
	fixed("재고수량", func(d models.ListingDefaults) interface{} { return d.StockQuantity }),
	fixed("A/S 전화번호", func(d models.ListingDefaults) interface{} { return d.ASPhone }),
	{Header: "상품설명_참고", Value: text(func(l models.Listing) string { return l.Description })},
	{Header: "아마존평점", Value: func(l models.Listing) interface{} {
		if l.Provenance.Rating == nil {
			return 0
		}
		return *l.Provenance.Rating
	}},
	{Header: "아마존리뷰수", Value: func(l models.Listing) interface{} {
		if l.Provenance.ReviewCount == nil {
			return 0
		}
		return *l.Provenance.ReviewCount
	}},
	{Header: "아마존USD가격", Value: text(func(l models.Listing) string { return l.Provenance.OriginalPrice })},
	{Header: "아마존원본제목", Value: text(func(l models.Listing) string { return l.Provenance.OriginalTitle })},
	{Header: "이미지URL", Value: text(func(l models.Listing) string { return l.Provenance.ImageURL })},
	{Header: "브랜드_참고", Value: text(func(l models.Listing) string { return l.Provenance.BrandBeforeTranslation })},
	{Header: "수집일시", Value: text(func(l models.Listing) string {
		if l.Provenance.CollectedAt == nil {
			return ""
		}
		return l.Provenance.CollectedAt.Format(time.RFC3339)
	})},
}

// Headers возвращает заголовки колонок
func Headers(columns []Column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}
