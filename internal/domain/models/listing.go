package models

import "time"

// Listing представляет собранную карточку товара для целевого маркетплейса.
// Создается один раз на каждую валидную запись RawProduct и после этого не изменяется:
// компоненты передают ее по значению.
type Listing struct {
	SellerCode       string       `json:"seller_code"`
	CategoryCode     CategoryCode `json:"category_code"`
	LeafCategoryCode CategoryCode `json:"leaf_category_code"`
	CategoryPath     string       `json:"category_path"`
	Title            string       `json:"title"`
	Brand            string       `json:"brand,omitempty"`
	Manufacturer     string       `json:"manufacturer"`
	Description      string       `json:"description"`
	SalePrice        int64        `json:"sale_price"`
	ImageURL         string       `json:"image_url,omitempty"`
	AdditionalImages []string     `json:"additional_images,omitempty"`
	ModelName        string       `json:"model_name"`
	SizeModelName    string       `json:"size_model_name"`

	Defaults ListingDefaults `json:"defaults"`

	// Provenance не входит в публикуемую часть карточки
	Provenance Provenance `json:"provenance"`
}

// Provenance хранит сведения об исходной записи для справочного документа
type Provenance struct {
	OriginalTitle          string     `json:"original_title"`
	OriginalPrice          string     `json:"original_price"`
	Rating                 *float64   `json:"rating,omitempty"`
	ReviewCount            *int       `json:"review_count,omitempty"`
	ImageURL               string     `json:"image_url,omitempty"`
	BrandBeforeTranslation string     `json:"brand_before_translation,omitempty"`
	CollectedAt            *time.Time `json:"collected_at,omitempty"`
}

// Images возвращает основное и дополнительные изображения без пустых ссылок
func (l Listing) Images() []string {
	images := make([]string, 0, 1+len(l.AdditionalImages))
	if l.ImageURL != "" {
		images = append(images, l.ImageURL)
	}
	for _, u := range l.AdditionalImages {
		if u != "" {
			images = append(images, u)
		}
	}
	return images
}

// ListingDefaults содержит постоянные значения полей схемы выгрузки.
// Значения по умолчанию задаются конфигурацией (секция listing).
type ListingDefaults struct {
	Status           string `json:"status" mapstructure:"status"`
	TaxType          string `json:"tax_type" mapstructure:"taxType"`
	StockQuantity    int    `json:"stock_quantity" mapstructure:"stockQuantity"`
	ReviewExposure   string `json:"review_exposure" mapstructure:"reviewExposure"`
	InquiryExposure  string `json:"inquiry_exposure" mapstructure:"inquiryExposure"`
	ReviewEnabled    string `json:"review_enabled" mapstructure:"reviewEnabled"`
	SaleStatus       string `json:"sale_status" mapstructure:"saleStatus"`
	DisplayStatus    string `json:"display_status" mapstructure:"displayStatus"`
	AdultOnly        string `json:"adult_only" mapstructure:"adultOnly"`
	MinorRestricted  string `json:"minor_restricted" mapstructure:"minorRestricted"`
	OptionType       string `json:"option_type" mapstructure:"optionType"`
	DefaultMaker     string `json:"default_maker" mapstructure:"defaultMaker"`
	ManufactureDate  string `json:"manufacture_date" mapstructure:"manufactureDate"`
	ExpiryDate       string `json:"expiry_date" mapstructure:"expiryDate"`
	OriginCode       string `json:"origin_code" mapstructure:"originCode"`
	OriginAreaCode   string `json:"origin_area_code" mapstructure:"originAreaCode"`
	OriginName       string `json:"origin_name" mapstructure:"originName"`
	MultiOrigin      string `json:"multi_origin" mapstructure:"multiOrigin"`
	MinorPurchase    string `json:"minor_purchase" mapstructure:"minorPurchase"`
	ShippingTemplate string `json:"shipping_template" mapstructure:"shippingTemplate"`
	ShippingMethod   string `json:"shipping_method" mapstructure:"shippingMethod"`
	ShippingFee      int64  `json:"shipping_fee" mapstructure:"shippingFee"`
	ShippingFeeType  string `json:"shipping_fee_type" mapstructure:"shippingFeeType"`
	ShippingPayment  string `json:"shipping_payment" mapstructure:"shippingPayment"`
	ShipFrom         string `json:"ship_from" mapstructure:"shipFrom"`
	Carrier          string `json:"carrier" mapstructure:"carrier"`
	CarrierCode      string `json:"carrier_code" mapstructure:"carrierCode"`
	ShippingPeriod   string `json:"shipping_period" mapstructure:"shippingPeriod"`
	FreeShippingOver int64  `json:"free_shipping_over" mapstructure:"freeShippingOver"`
	NoticeTemplate   string `json:"notice_template" mapstructure:"noticeTemplate"`
	NoticeCertified  string `json:"notice_certified" mapstructure:"noticeCertified"`
	NoticeCountry    string `json:"notice_country" mapstructure:"noticeCountry"`
	NoticeShelfLife  string `json:"notice_shelf_life" mapstructure:"noticeShelfLife"`
	NoticeUsage      string `json:"notice_usage" mapstructure:"noticeUsage"`
	NoticeCaution    string `json:"notice_caution" mapstructure:"noticeCaution"`
	NoticeColor      string `json:"notice_color" mapstructure:"noticeColor"`
	NoticeMaterial   string `json:"notice_material" mapstructure:"noticeMaterial"`
	NoticeSize       string `json:"notice_size" mapstructure:"noticeSize"`
	ASTemplate       string `json:"as_template" mapstructure:"asTemplate"`
	ASContact        string `json:"as_contact" mapstructure:"asContact"`
	ASPhone          string `json:"as_phone" mapstructure:"asPhone"`
	ASGuide          string `json:"as_guide" mapstructure:"asGuide"`
	SellerNote       string `json:"seller_note" mapstructure:"sellerNote"`
	SizeGroup        string `json:"size_group" mapstructure:"sizeGroup"`
	SizeName         string `json:"size_name" mapstructure:"sizeName"`
	SizeDetail       string `json:"size_detail" mapstructure:"sizeDetail"`
}

// DefaultListingDefaults возвращает значения, принятые для выгрузки в SmartStore
func DefaultListingDefaults() ListingDefaults {
	return ListingDefaults{
		Status:           "신상품",
		TaxType:          "과세상품",
		StockQuantity:    999,
		ReviewExposure:   "Y",
		InquiryExposure:  "Y",
		ReviewEnabled:    "Y",
		SaleStatus:       "판매중",
		DisplayStatus:    "전시",
		AdultOnly:        "N",
		MinorRestricted:  "N",
		OptionType:       "단순상품",
		DefaultMaker:     "해외제조사",
		ManufactureDate:  "2024-01-01",
		ExpiryDate:       "2030-12-31",
		OriginCode:       "US",
		OriginAreaCode:   "04",
		OriginName:       "미국",
		MultiOrigin:      "N",
		MinorPurchase:    "N",
		ShippingTemplate: "1",
		ShippingMethod:   "택배",
		ShippingFee:      3000,
		ShippingFeeType:  "유료",
		ShippingPayment:  "선결제",
		ShipFrom:         "서울",
		Carrier:          "CJ대한통운",
		CarrierCode:      "CJGLS",
		ShippingPeriod:   "1~3일",
		FreeShippingOver: 50000,
		NoticeTemplate:   "50000169",
		NoticeCertified:  "FDA 승인 시설에서 제조",
		NoticeCountry:    "미국",
		NoticeShelfLife:  "제품 표기 참조",
		NoticeUsage:      "제품 설명서 참조",
		NoticeCaution:    "사용 전 패치테스트 권장",
		NoticeColor:      "제품 참조",
		NoticeMaterial:   "화장품",
		NoticeSize:       "제품 상세 참조",
		ASTemplate:       "1",
		ASContact:        "고객센터",
		ASPhone:          "010-2291-4080",
		ASGuide:          "A/S 관련 문의는 판매자에게 연락바랍니다. 해외 직구 상품으로 A/S는 제한적입니다.",
		SellerNote:       "해외 직구 상품입니다",
		SizeGroup:        "일반",
		SizeName:         "FREE",
		SizeDetail:       "제품 상세 참조",
	}
}
