package codec_test

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/dataforge/dataset-pipeline/internal/codec"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/xuri/excelize/v2"
)

var _ = Describe("codec", func() {
	Context("formats", func() {
		It("rejects an unknown format", func() {
			_, err := codec.Decode([]byte("x"), "parquet")
			var unsupported *codec.UnsupportedFormatError
			Expect(errors.As(err, &unsupported)).To(BeTrue())
			Expect(unsupported.Format).To(Equal(codec.Format("parquet")))

			_, err = codec.Encode(nil, "yaml")
			Expect(errors.As(err, &unsupported)).To(BeTrue())
		})

		It("parses format names", func() {
			f, err := codec.ParseFormat(" JSONL ")
			Expect(err).To(BeNil())
			Expect(f).To(Equal(codec.FormatJSONL))

			f, err = codec.ParseFormat("ndjson")
			Expect(err).To(BeNil())
			Expect(f).To(Equal(codec.FormatJSONL))

			_, err = codec.ParseFormat("txt")
			Expect(err).ToNot(BeNil())
		})

		It("knows content types", func() {
			Expect(codec.ContentType(codec.FormatCSV)).To(Equal("text/csv"))
			Expect(codec.ContentType("unknown")).To(Equal("application/octet-stream"))
		})
	})

	Context("json", func() {
		It("decodes an array of objects keeping field order", func() {
			records, err := codec.Decode([]byte(`[{"b":1,"a":"x"},{"c":null,"d":true,"n":{"k":[1,2]}}]`), codec.FormatJSON)
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Keys()).To(Equal([]string{"b", "a"}))

			v, _ := records[0].Get("b")
			Expect(v).To(Equal(json.Number("1")))
			v, _ = records[1].Get("d")
			Expect(v).To(Equal(true))
			v, found := records[1].Get("c")
			Expect(found).To(BeTrue())
			Expect(v).To(BeNil())
			v, _ = records[1].Get("n")
			Expect(v).To(Equal(json.RawMessage(`{"k":[1,2]}`)))
		})

		It("fails when the input is not an array", func() {
			_, err := codec.Decode([]byte(`{"a":1}`), codec.FormatJSON)
			var decodeErr *codec.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
		})

		It("fails on data after the array", func() {
			_, err := codec.Decode([]byte(`[{"a":1}] junk`), codec.FormatJSON)
			var decodeErr *codec.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())

			_, err = codec.Decode([]byte("[{\"a\":1}]\n  "), codec.FormatJSON)
			Expect(err).To(BeNil())
		})

		It("fails on a non object element", func() {
			_, err := codec.Decode([]byte(`[{"a":1}, 3]`), codec.FormatJSON)
			var decodeErr *codec.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
			Expect(decodeErr.Position).To(Equal("element 1"))
		})

		It("encodes a pretty printed array", func() {
			out, err := codec.Encode([]*codec.Record{codec.RecordFromPairs("name", "<Jane>", "age", 3)}, codec.FormatJSON)
			Expect(err).To(BeNil())
			Expect(string(out)).To(Equal("[\n  {\n    \"name\": \"<Jane>\",\n    \"age\": 3\n  }\n]"))
		})

		It("encodes no records as an empty array", func() {
			out, err := codec.Encode(nil, codec.FormatJSON)
			Expect(err).To(BeNil())
			Expect(string(out)).To(Equal("[]"))
		})
	})

	Context("jsonl", func() {
		It("skips blank lines", func() {
			records, err := codec.Decode([]byte("{\"a\":1}\n\n  \n{\"a\":2}\r\n"), codec.FormatJSONL)
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(2))
		})

		It("reports the malformed line", func() {
			_, err := codec.Decode([]byte("{\"a\":1}\n\n{\"a\":\n"), codec.FormatJSONL)
			var decodeErr *codec.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
			Expect(decodeErr.Position).To(Equal("line 3"))
			Expect(err.Error()).To(ContainSubstring("line 3"))
		})

		It("encodes compact objects joined by newlines", func() {
			out, err := codec.Encode([]*codec.Record{
				codec.RecordFromPairs("name", "[PERSON_NAME]", "email", "[EMAIL]"),
				codec.RecordFromPairs("name", "x"),
			}, codec.FormatJSONL)
			Expect(err).To(BeNil())
			Expect(string(out)).To(Equal("{\"name\":\"[PERSON_NAME]\",\"email\":\"[EMAIL]\"}\n{\"name\":\"x\"}"))
		})
	})

	Context("csv", func() {
		It("keys rows by the header", func() {
			records, err := codec.Decode([]byte("name,email\n\"Jane Doe\",\"jane@example.com\"\n\nJohn,\n"), codec.FormatCSV)
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(2))
			Expect(records[0].Keys()).To(Equal([]string{"name", "email"}))
			v, _ := records[0].Get("email")
			Expect(v).To(Equal("jane@example.com"))
			v, _ = records[1].Get("email")
			Expect(v).To(Equal(""))
		})

		It("keeps rows made of empty cells", func() {
			records, err := codec.Decode([]byte("a,b\n,\n"), codec.FormatCSV)
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Keys()).To(Equal([]string{"a", "b"}))
			v, found := records[0].Get("b")
			Expect(found).To(BeTrue())
			Expect(v).To(Equal(""))
		})

		It("pads short rows", func() {
			records, err := codec.Decode([]byte("a,b,c\n1\n"), codec.FormatCSV)
			Expect(err).To(BeNil())
			v, found := records[0].Get("c")
			Expect(found).To(BeTrue())
			Expect(v).To(Equal(""))
		})

		It("fails on rows longer than the header", func() {
			_, err := codec.Decode([]byte("a,b\n1,2,3\n"), codec.FormatCSV)
			var decodeErr *codec.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
			Expect(decodeErr.Position).To(Equal("line 2"))
		})

		It("fails on a bare quote", func() {
			_, err := codec.Decode([]byte("a,b\n1,x\"y\n"), codec.FormatCSV)
			var decodeErr *codec.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
			Expect(decodeErr.Position).To(ContainSubstring("line 2"))
		})

		It("builds the header from the union of keys in first seen order", func() {
			out, err := codec.Encode([]*codec.Record{
				codec.RecordFromPairs("a", "1", "b", 2.5),
				codec.RecordFromPairs("c", true, "a", "x,y"),
			}, codec.FormatCSV)
			Expect(err).To(BeNil())
			Expect(string(out)).To(Equal("a,b,c\n1,2.5,\n\"x,y\",,true\n"))
		})
	})

	Context("xlsx", func() {
		It("decodes the first sheet", func() {
			f := excelize.NewFile()
			defer f.Close()
			Expect(f.SetSheetRow("Sheet1", "A1", &[]interface{}{"name", "city"})).To(Succeed())
			Expect(f.SetSheetRow("Sheet1", "A2", &[]interface{}{"Jane", "Paris"})).To(Succeed())
			Expect(f.SetSheetRow("Sheet1", "A4", &[]interface{}{"John"})).To(Succeed())
			var buf bytes.Buffer
			_, err := f.WriteTo(&buf)
			Expect(err).To(BeNil())

			records, err := codec.Decode(buf.Bytes(), codec.FormatXLSX)
			Expect(err).To(BeNil())
			Expect(records).To(HaveLen(2))
			v, _ := records[0].Get("city")
			Expect(v).To(Equal("Paris"))
			v, _ = records[1].Get("city")
			Expect(v).To(Equal(""))
		})

		It("round trips through encode", func() {
			in := []*codec.Record{codec.RecordFromPairs("name", "Jane", "city", "Paris")}
			out, err := codec.Encode(in, codec.FormatXLSX)
			Expect(err).To(BeNil())
			records, err := codec.Decode(out, codec.FormatXLSX)
			Expect(err).To(BeNil())
			Expect(records).To(Equal(in))
		})

		It("fails on bytes that are not a workbook", func() {
			_, err := codec.Decode([]byte("not a zip"), codec.FormatXLSX)
			var decodeErr *codec.DecodeError
			Expect(errors.As(err, &decodeErr)).To(BeTrue())
		})
	})

	Context("round trip", func() {
		records := []*codec.Record{
			codec.RecordFromPairs("id", json.Number("1"), "name", "Jane", "active", true, "note", nil),
			codec.RecordFromPairs("id", json.Number("2"), "name", "John", "score", json.Number("9.75")),
		}

		DescribeTable("decode(encode(r)) == r",
			func(format codec.Format) {
				out, err := codec.Encode(records, format)
				Expect(err).To(BeNil())
				back, err := codec.Decode(out, format)
				Expect(err).To(BeNil())
				Expect(back).To(Equal(records))
			},
			Entry("json", codec.FormatJSON),
			Entry("jsonl", codec.FormatJSONL),
		)

		DescribeTable("keeps integers beyond float precision",
			func(format codec.Format, input string) {
				records, err := codec.Decode([]byte(input), format)
				Expect(err).To(BeNil())
				v, _ := records[0].Get("id")
				Expect(v).To(Equal(json.Number("9007199254740993")))

				out, err := codec.Encode(records, format)
				Expect(err).To(BeNil())
				Expect(string(out)).To(ContainSubstring("9007199254740993"))
				back, err := codec.Decode(out, format)
				Expect(err).To(BeNil())
				Expect(back).To(Equal(records))
			},
			Entry("json", codec.FormatJSON, `[{"id":9007199254740993}]`),
			Entry("jsonl", codec.FormatJSONL, `{"id":9007199254740993}`),
		)

		It("keeps the string representation through csv", func() {
			out, err := codec.Encode(records, codec.FormatCSV)
			Expect(err).To(BeNil())
			back, err := codec.Decode(out, codec.FormatCSV)
			Expect(err).To(BeNil())
			Expect(back).To(HaveLen(2))
			for i := range records {
				for _, k := range records[i].Keys() {
					want, _ := records[i].Get(k)
					got, _ := back[i].Get(k)
					Expect(got).To(Equal(codec.FormatValue(want)))
				}
			}
		})
	})
})
