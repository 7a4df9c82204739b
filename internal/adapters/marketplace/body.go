package marketplace

import (
	"fmt"
	"strings"

	"github.com/athebyme/listing-pipeline/internal/domain/models"
	"github.com/google/uuid"
)

// ProductRequest тело запроса регистрации товара
type ProductRequest struct {
	OriginProduct            OriginProduct  `json:"originProduct"`
	SmartstoreChannelProduct ChannelProduct `json:"smartstoreChannelProduct"`
}

// OriginProduct основная часть карточки товара
type OriginProduct struct {
	StatusType       string         `json:"statusType"`
	SaleType         string         `json:"saleType"`
	LeafCategoryID   string         `json:"leafCategoryId"`
	Name             string         `json:"name"`
	Images           []ProductImage `json:"images"`
	DetailContent    string         `json:"detailContent"`
	BrandName        string         `json:"brandName,omitempty"`
	ManufacturerName string         `json:"manufacturerName,omitempty"`
	SellerCode       string         `json:"sellerManagementCode"`
	OriginAreaInfo   OriginAreaInfo `json:"originAreaInfo"`
	AdultProduct     bool           `json:"adultProduct"`
}

// ProductImage ссылка на загруженное изображение
type ProductImage struct {
	URL string `json:"url"`
}

// OriginAreaInfo сведения о стране происхождения
type OriginAreaInfo struct {
	OriginAreaCode string `json:"originAreaCode"`
	Content        string `json:"content"`
}

// ChannelProduct параметры витрины магазина
type ChannelProduct struct {
	NaverShoppingRegistration bool         `json:"naverShoppingRegistration"`
	ChannelProductName        string       `json:"channelProductName"`
	DisplayStatusType         string       `json:"channelProductDisplayStatusType"`
	SalePrice                 int64        `json:"salePrice"`
	DiscountPrice             int64        `json:"discountPrice"`
	StockQuantity             int          `json:"stockQuantity"`
	DeliveryInfo              DeliveryInfo `json:"deliveryInfo"`
}

// DeliveryInfo условия доставки
type DeliveryInfo struct {
	DeliveryType                  string      `json:"deliveryType"`
	DeliveryAttributeType         string      `json:"deliveryAttributeType"`
	DeliveryCompany               string      `json:"deliveryCompany"`
	DeliveryBundleGroupUsable     bool        `json:"deliveryBundleGroupUsable"`
	DeliveryFee                   DeliveryFee `json:"deliveryFee"`
	ReturnDeliveryCompanyPriority string      `json:"returnDeliveryCompanyPriorityType"`
	ReturnCenterCode              string      `json:"returnCenterCode"`
	ReturnChargeName              string      `json:"returnChargeName"`
	ReturnChargePhoneNumber       string      `json:"returnChargePhoneNumber"`
}

// DeliveryFee стоимость доставки
type DeliveryFee struct {
	DeliveryFeeType       string   `json:"deliveryFeeType"`
	BaseFee               int64    `json:"baseFee"`
	FreeConditionalAmount int64    `json:"freeConditionalAmount"`
	DeliveryFeeByArea     string   `json:"deliveryFeeByArea"`
	SurchargesByArea      []string `json:"surchargesByArea"`
}

// ReturnPolicy реквизиты возврата, не входящие в карточку
type ReturnPolicy struct {
	CenterCode string
	ChargeName string
}

// DefaultReturnPolicy реквизиты возврата по умолчанию
func DefaultReturnPolicy() ReturnPolicy {
	return ReturnPolicy{CenterCode: "10001", ChargeName: "판매자"}
}

// NewProductRequest собирает тело регистрации из карточки и загруженных изображений
func NewProductRequest(l models.Listing, images []string, returns ReturnPolicy) ProductRequest {
	d := l.Defaults

	productImages := make([]ProductImage, 0, len(images))
	for _, u := range images {
		productImages = append(productImages, ProductImage{URL: u})
	}

	return ProductRequest{
		OriginProduct: OriginProduct{
			StatusType:       "SALE",
			SaleType:         "NEW",
			LeafCategoryID:   l.LeafCategoryCode.String(),
			Name:             l.Title,
			Images:           productImages,
			DetailContent:    l.Description,
			BrandName:        l.Brand,
			ManufacturerName: l.Manufacturer,
			SellerCode:       l.SellerCode,
			OriginAreaInfo: OriginAreaInfo{
				OriginAreaCode: d.OriginAreaCode,
				Content:        d.OriginName,
			},
			AdultProduct: strings.EqualFold(d.AdultOnly, "Y"),
		},
		SmartstoreChannelProduct: ChannelProduct{
			NaverShoppingRegistration: true,
			ChannelProductName:        l.Title,
			DisplayStatusType:         "ON",
			SalePrice:                 l.SalePrice,
			StockQuantity:             d.StockQuantity,
			DeliveryInfo: DeliveryInfo{
				DeliveryType:              "DELIVERY",
				DeliveryAttributeType:     "NORMAL",
				DeliveryCompany:           d.CarrierCode,
				DeliveryBundleGroupUsable: true,
				DeliveryFee: DeliveryFee{
					DeliveryFeeType:       "PAID",
					BaseFee:               d.ShippingFee,
					FreeConditionalAmount: d.FreeShippingOver,
					DeliveryFeeByArea:     "NOT_DIFFERENTIAL",
					SurchargesByArea:      []string{},
				},
				ReturnDeliveryCompanyPriority: "PRIMARY",
				ReturnCenterCode:              returns.CenterCode,
				ReturnChargeName:              returns.ChargeName,
				ReturnChargePhoneNumber:       d.ASPhone,
			},
		},
	}
}

// idempotencyNamespace пространство имен ключей идемпотентности публикации
var idempotencyNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("listing-pipeline/publish"))

// IdempotencyKey возвращает ключ, одинаковый для повторной публикации той же карточки
func IdempotencyKey(l models.Listing) string {
	return uuid.NewSHA1(idempotencyNamespace, []byte(fmt.Sprintf("%s|%s|%d", l.SellerCode, l.Title, l.SalePrice))).String()
}
