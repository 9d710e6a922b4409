package assembly

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"knolling-factory/modules/common/utils"
)

// isZoneColor - 와이어프레임 가이드 색상 (빨강/초록 블록)
func isZoneColor(r, g, b uint8) bool {
	return (r > 200 && g < 100 && b < 100) || (g > 200 && r < 100 && b < 100)
}

// MaskZones - 가이드 색상 픽셀을 흰색으로 바꾼 뒤 그레이스케일 변환
func MaskZones(src image.Image) *image.Gray {
	bounds := src.Bounds()
	dst := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.RGBAModel.Convert(src.At(x, y)).(color.RGBA)
			if isZoneColor(c.R, c.G, c.B) {
				dst.SetGray(x, y, color.Gray{Y: 255})
				continue
			}
			dst.Set(x, y, c)
		}
	}
	return dst
}

// preparePage - 페이지 이미지를 PDF에 넣을 JPEG로 변환. 커버는 풀컬러 유지
func preparePage(path string, fullColor bool) ([]byte, error) {
	img, err := utils.LoadImageFile(path)
	if err != nil {
		return nil, err
	}
	if !fullColor {
		img = MaskZones(img)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("failed to encode page: %w", err)
	}
	return buf.Bytes(), nil
}
