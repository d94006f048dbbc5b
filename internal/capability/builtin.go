package capability

import (
	"github.com/bigkaa/docconv/internal/domain/model"
	"github.com/bigkaa/docconv/internal/domain/operation"
)

// Set — набор встроенных конвертеров с общими настройками.
type Set struct {
	opts   Options
	office *officeRunner
	raster Rasterizer
}

// New создаёт набор конвертеров. Растеризатор выбирается сборочным тегом mupdf.
func New(opts Options) *Set {
	return &Set{
		opts:   opts,
		office: &officeRunner{bin: opts.SofficeBin, timeout: opts.OfficeTimeout},
		raster: newRasterizer(opts),
	}
}

// Probe проверяет наличие внешних инструментов. Вызывается один раз при старте,
// результат передаётся в operation.NewRegistry.
func (s *Set) Probe() map[operation.Tool]bool {
	return map[operation.Tool]bool{
		ToolOffice:     officeAvailable(s.opts),
		ToolRasterizer: rasterizerAvailable(s.opts),
	}
}

// RasterizerName возвращает имя используемого растеризатора.
func (s *Set) RasterizerName() string {
	return s.raster.Name()
}

var (
	paramsSplit = []model.ParamSpec{
		{Name: operation.ParamStartPage, Type: model.ParamInteger, Required: true,
			Description: "First page of the range (1-based, inclusive)"},
		{Name: operation.ParamEndPage, Type: model.ParamInteger, Required: true,
			Description: "Last page of the range (inclusive, clamped to the page count)"},
	}
	paramsRotate = []model.ParamSpec{
		{Name: operation.ParamRotation, Type: model.ParamInteger, Default: "90",
			Description: "Clockwise rotation in degrees: 90, 180 or 270"},
	}
	paramsWatermark = []model.ParamSpec{
		{Name: operation.ParamWatermark, Type: model.ParamString, Required: true,
			Description: "Watermark text placed at the center of every page"},
	}
	paramsRemove = []model.ParamSpec{
		{Name: operation.ParamPages, Type: model.ParamPageList, Required: true,
			Description: "Comma-separated 1-based page numbers to remove"},
	}
)

// Entries возвращает таблицу операций: дескриптор, нужные инструменты и реализацию.
// Порядок записей — порядок в списке операций для клиентов.
func (s *Set) Entries() []operation.Entry {
	office := []operation.Tool{ToolOffice}
	raster := []operation.Tool{ToolRasterizer}

	return []operation.Entry{
		{
			Descriptor: model.OperationDescriptor{
				ID: "pdf_to_word", Name: "PDF to Word",
				Description: "Convert PDF documents to editable Word files",
				Accepts:     model.CategoryPDF, Produces: model.CategoryWord,
				Endpoint: "pdf-to-word", Suffix: "_word",
				Message: "PDF converted to Word successfully",
			},
			Requires:   office,
			Capability: s.office.Capability(officePDFToDocx),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "pdf_to_text", Name: "PDF to Text",
				Description: "Extract text content from PDF pages",
				Accepts:     model.CategoryPDF, Produces: model.CategoryText,
				Endpoint: "pdf-to-text", Suffix: "_text",
				Message: "Text extracted successfully",
			},
			Capability: operation.CapabilityFunc(PDFToText),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "pdf_to_images", Name: "PDF to Images",
				Description: "Render every PDF page to a PNG image (ZIP archive)",
				Accepts:     model.CategoryPDF, Produces: model.CategoryArchive,
				Endpoint: "pdf-to-images", Suffix: "_pages",
				Message: "PDF pages converted to images successfully",
			},
			Requires:   raster,
			Capability: PDFToImages(s.raster),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "pdf_to_powerpoint", Name: "PDF to PowerPoint",
				Description: "Convert PDF pages to a PowerPoint presentation",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPowerPoint,
				Endpoint: "pdf-to-powerpoint", Suffix: "_presentation",
				Message: "PDF converted to PowerPoint successfully",
			},
			Requires:   office,
			Capability: s.office.Capability(officePDFToPptx),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "pdf_to_excel", Name: "PDF to Excel",
				Description: "Lay out PDF text rows as spreadsheet rows, one sheet per page",
				Accepts:     model.CategoryPDF, Produces: model.CategoryExcel,
				Endpoint: "pdf-to-excel", Suffix: "_spreadsheet",
				Message: "PDF converted to Excel successfully",
			},
			Capability: operation.CapabilityFunc(PDFToExcel),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "word_to_pdf", Name: "Word to PDF",
				Description: "Convert Word documents to PDF",
				Accepts:     model.CategoryWord, Produces: model.CategoryPDF,
				Endpoint: "word-to-pdf",
				Message:  "Word document converted to PDF successfully",
			},
			Requires:   office,
			Capability: s.office.Capability(officeToPDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "text_to_pdf", Name: "Text to PDF",
				Description: "Typeset a plain text file as a PDF document",
				Accepts:     model.CategoryText, Produces: model.CategoryPDF,
				Endpoint: "text-to-pdf",
				Message:  "Text converted to PDF successfully",
			},
			Capability: operation.CapabilityFunc(s.TextToPDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "images_to_pdf", Name: "Images to PDF",
				Description: "Combine images into a PDF, one page per image",
				Accepts:     model.CategoryImage, Produces: model.CategoryPDF,
				Multiple: true, MinFiles: 1,
				Endpoint: "images-to-pdf",
				Message:  "Images converted to PDF successfully",
			},
			Capability: operation.CapabilityFunc(ImagesToPDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "powerpoint_to_pdf", Name: "PowerPoint to PDF",
				Description: "Convert PowerPoint presentations to PDF",
				Accepts:     model.CategoryPowerPoint, Produces: model.CategoryPDF,
				Endpoint: "powerpoint-to-pdf",
				Message:  "PowerPoint converted to PDF successfully",
			},
			Requires:   office,
			Capability: s.office.Capability(officeToPDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "excel_to_pdf", Name: "Excel to PDF",
				Description: "Convert Excel spreadsheets to PDF",
				Accepts:     model.CategoryExcel, Produces: model.CategoryPDF,
				Endpoint: "excel-to-pdf",
				Message:  "Excel converted to PDF successfully",
			},
			Requires:   office,
			Capability: s.office.Capability(officeToPDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "extract_images", Name: "Extract Images",
				Description: "Extract embedded images from a PDF (ZIP archive)",
				Accepts:     model.CategoryPDF, Produces: model.CategoryArchive,
				Endpoint: "extract-images", Suffix: "_images",
				Message: "Images extracted successfully",
			},
			Capability: operation.CapabilityFunc(ExtractImages),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "merge_pdfs", Name: "Merge PDFs",
				Description: "Combine multiple PDFs into one document in upload order",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Multiple: true, MinFiles: 2,
				Endpoint: "merge", Suffix: "_merged",
				Message: "PDFs merged successfully",
			},
			Capability: operation.CapabilityFunc(MergePDFs),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "split_pdf", Name: "Split PDF",
				Description: "Extract a range of pages into a new PDF",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Params:   paramsSplit,
				Endpoint: "split", Suffix: "_split",
				Message: "PDF split successfully",
			},
			Capability: operation.CapabilityFunc(SplitPDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "reverse_pdf", Name: "Reverse PDF",
				Description: "Reverse the page order of a PDF",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Endpoint: "reverse-pdf", Suffix: "_reversed",
				Message: "PDF pages reversed successfully",
			},
			Capability: operation.CapabilityFunc(ReversePDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "rotate_pdf", Name: "Rotate PDF",
				Description: "Rotate every page of a PDF",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Params:   paramsRotate,
				Endpoint: "rotate", Suffix: "_rotated",
				Message: "PDF rotated successfully",
			},
			Capability: operation.CapabilityFunc(RotatePDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "add_watermark", Name: "Add Watermark",
				Description: "Place a text watermark at the center of every page",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Params:   paramsWatermark,
				Endpoint: "watermark", Suffix: "_watermarked",
				Message: "Watermark added successfully",
			},
			Capability: operation.CapabilityFunc(AddWatermark),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "remove_pages", Name: "Remove Pages",
				Description: "Remove selected pages from a PDF",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Params:   paramsRemove,
				Endpoint: "remove-pages", Suffix: "_removed",
				Message: "Pages removed successfully",
			},
			Capability: operation.CapabilityFunc(RemovePages),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "add_page_numbers", Name: "Add Page Numbers",
				Description: "Number every page at the bottom-right corner",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Endpoint: "add-page-numbers", Suffix: "_numbered",
				Message: "Page numbers added successfully",
			},
			Capability: operation.CapabilityFunc(AddPageNumbers),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "compress_pdf", Name: "Compress PDF",
				Description: "Reduce PDF size by compressing streams and dropping unused objects",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Endpoint: "compress", Suffix: "_compressed",
				Message: "PDF compressed successfully",
			},
			Capability: operation.CapabilityFunc(CompressPDF),
		},
		{
			Descriptor: model.OperationDescriptor{
				ID: "repair_pdf", Name: "Repair PDF",
				Description: "Rebuild a damaged PDF from the pages that can still be read",
				Accepts:     model.CategoryPDF, Produces: model.CategoryPDF,
				Endpoint: "repair-pdf", Suffix: "_repaired",
				Message: "PDF repaired successfully",
			},
			Capability: operation.CapabilityFunc(s.RepairPDF),
		},
	}
}
