package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parquet-go/parquet-go"
)

func writeFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}
	return path
}

func TestNewCatalogLoader(t *testing.T) {
	path := "./books.csv"
	loader := NewCatalogLoader(path)

	if loader.datasetPath != path {
		t.Errorf("Expected path %s, got %s", path, loader.datasetPath)
	}
}

func TestCatalogLoadCSV(t *testing.T) {
	content := "\ufeffbookID,title,authors,average_rating,isbn,isbn13,language_code,  num_pages,ratings_count,text_reviews_count,publication_date,publisher\n" +
		"1,Harry Potter and the Half-Blood Prince,J.K. Rowling/Mary GrandPré,4.57,0439785960,9780439785969,eng,652,2095690,27591,9/16/2006,Scholastic Inc.\n" +
		"2,Broken Row,Someone,4.1,123,456,eng,100,10,1,1/1/2000,Extra,Field\n" +
		"3,Bad Rating,Someone,abc,0439785960,,eng,100,10,1,1/1/2000,Pub\n" +
		"4,No Pages,Author,3.9,,,eng,,0,0,2001,Penguin Books\n"
	path := writeFile(t, "books.csv", []byte(content))

	rows, report, err := NewCatalogLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}
	if report.Rows != 4 || report.Loaded != 2 || report.Malformed != 2 {
		t.Errorf("unexpected report %+v", report)
	}
	if report.Reasons["field_count"] != 1 || report.Reasons["bad_rating"] != 1 {
		t.Errorf("unexpected reasons %v", report.Reasons)
	}

	first := rows[0]
	if first.Authors != "J.K. Rowling/Mary GrandPré" {
		t.Errorf("Authors = %q", first.Authors)
	}
	if first.ISBN13 != "9780439785969" || first.ISBN != "0439785960" {
		t.Errorf("unexpected identifiers %q / %q", first.ISBN, first.ISBN13)
	}
	if first.PageCount == nil || *first.PageCount != 652 {
		t.Errorf("PageCount = %v, want 652", first.PageCount)
	}
	if first.ReviewCount != 2095690 || first.Rating != 4.57 {
		t.Errorf("unexpected numbers %+v", first)
	}
	if rows[1].PageCount != nil {
		t.Errorf("expected missing page count, got %v", *rows[1].PageCount)
	}
}

func TestCatalogLoadMissingColumn(t *testing.T) {
	path := writeFile(t, "books.csv", []byte("name,rating\nfoo,1\n"))
	if _, _, err := NewCatalogLoader(path).Load(); err == nil {
		t.Error("expected error for missing required columns")
	}
}

func TestCatalogLoadUnsupportedExtension(t *testing.T) {
	if _, _, err := NewCatalogLoader("books.xml").Load(); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestCatalogLoadParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "books.parquet")
	pages := int64(310)
	in := []catalogParquetRow{
		{ISBN: "0441172717", ISBN13: "9780441172719", Title: "Dune", Authors: "Frank Herbert", AverageRating: 4.25, RatingsCount: 900, NumPages: &pages},
		{Title: "Untitled", AverageRating: 3.0},
	}
	if err := parquet.WriteFile(path, in); err != nil {
		t.Fatalf("Failed to write parquet fixture: %v", err)
	}

	rows, report, err := NewCatalogLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 2 || report.Loaded != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].PageCount == nil || *rows[0].PageCount != 310 || rows[0].ReviewCount != 900 {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[1].PageCount != nil {
		t.Errorf("expected nil page count for second row")
	}
}

func TestCommunityLoadLatin1(t *testing.T) {
	// "Misérables" and "Zürich" encoded as ISO-8859-1
	books := []byte("\"ISBN\";\"Book-Title\";\"Book-Author\";\"Year-Of-Publication\";\"Publisher\"\n" +
		"\"2070409189\";\"Les Mis\xe9rables\";\"Victor Hugo\";\"1998\";\"Gallimard\"\n" +
		"\"0000000000\";\"Bad \"quoted\" title\";\"Anon\";\"0\";\"X\"\n")
	path := writeFile(t, "BX-Books.csv", books)

	rows, report, err := NewCommunityLoader(EncodingLatin1).LoadBooks(path)
	if err != nil {
		t.Fatalf("LoadBooks failed: %v", err)
	}
	if report.Loaded != 2 {
		t.Fatalf("expected 2 books, got report %+v", report)
	}
	if rows[0].Title != "Les Misérables" {
		t.Errorf("Title = %q, want Les Misérables", rows[0].Title)
	}
	if rows[0].Year == nil || *rows[0].Year != 1998 {
		t.Errorf("Year = %v, want 1998", rows[0].Year)
	}
	if rows[1].Year != nil {
		t.Errorf("expected year 0 to be treated as absent")
	}

	users := []byte("\"User-ID\";\"Location\";\"Age\"\n" +
		"\"1\";\"z\xfcrich, switzerland\";NULL\n" +
		"\"2\";\"london, england, united kingdom\";\"34\"\n" +
		"\"x\";\"nowhere\";\"20\"\n")
	upath := writeFile(t, "BX-Users.csv", users)

	urows, ureport, err := NewCommunityLoader(EncodingLatin1).LoadUsers(upath)
	if err != nil {
		t.Fatalf("LoadUsers failed: %v", err)
	}
	if len(urows) != 2 || ureport.Reasons["bad_user_id"] != 1 {
		t.Fatalf("unexpected users %+v report %+v", urows, ureport)
	}
	if urows[0].Location != "zürich, switzerland" || urows[0].Age != nil {
		t.Errorf("unexpected first user %+v", urows[0])
	}
	if urows[1].Age == nil || *urows[1].Age != 34 {
		t.Errorf("unexpected second user age %v", urows[1].Age)
	}
}

func TestCommunityLoadUsersKeepsFractionalAges(t *testing.T) {
	users := []byte("\"User-ID\";\"Location\";\"Age\"\n" +
		"\"1\";\"leeds, england\";\"100.7\"\n" +
		"\"2\";\"york, england\";\"9.5\"\n" +
		"\"3\";\"bath, england\";\"abc\"\n" +
		"\"4\";\"kent, england\";\"\"\n")
	path := writeFile(t, "BX-Users.csv", users)

	rows, report, err := NewCommunityLoader(EncodingLatin1).LoadUsers(path)
	if err != nil {
		t.Fatalf("LoadUsers failed: %v", err)
	}
	if len(rows) != 4 || report.Malformed != 0 {
		t.Fatalf("unexpected users %+v report %+v", rows, report)
	}
	if rows[0].Age == nil || *rows[0].Age != 100.7 {
		t.Errorf("Age = %v, want 100.7 unrounded", rows[0].Age)
	}
	if rows[1].Age == nil || *rows[1].Age != 9.5 {
		t.Errorf("Age = %v, want 9.5 unrounded", rows[1].Age)
	}
	if rows[2].Age != nil || rows[3].Age != nil {
		t.Errorf("expected non-numeric and empty ages to be absent, got %v and %v", rows[2].Age, rows[3].Age)
	}
	if report.Invalid["age"] != 1 {
		t.Errorf("Invalid = %v, want one non-numeric age", report.Invalid)
	}
}

func TestCatalogLoadFractionalPageCounts(t *testing.T) {
	content := "title,authors,average_rating,isbn,num_pages\n" +
		"Long Book,A,4.0,0439785960,2000.5\n" +
		"Short Book,B,4.0,0439785960,9.9\n" +
		"Odd Book,C,4.0,0439785960,many\n"
	path := writeFile(t, "books.csv", []byte(content))

	rows, report, err := NewCatalogLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].PageCount == nil || *rows[0].PageCount != 2000.5 {
		t.Errorf("PageCount = %v, want 2000.5", rows[0].PageCount)
	}
	if rows[1].PageCount == nil || *rows[1].PageCount != 9.9 {
		t.Errorf("PageCount = %v, want 9.9", rows[1].PageCount)
	}
	if rows[2].PageCount != nil {
		t.Errorf("expected non-numeric page count to be absent, got %v", *rows[2].PageCount)
	}
	if report.Invalid["num_pages"] != 1 || len(report.InvalidColumns()) != 1 {
		t.Errorf("Invalid = %v, want one non-numeric num_pages", report.Invalid)
	}
}

func TestCommunityLoadRatings(t *testing.T) {
	content := []byte("\"User-ID\";\"ISBN\";\"Book-Rating\"\n" +
		"\"276725\";\"034545104X\";\"0\"\n" +
		"\"276726\";\"0155061224\";\"5\"\n" +
		"\"276727\";\"0446520802\";\"ten\"\n")
	path := writeFile(t, "BX-Book-Ratings.csv", content)

	rows, report, err := NewCommunityLoader("").LoadRatings(path)
	if err != nil {
		t.Fatalf("LoadRatings failed: %v", err)
	}
	if len(rows) != 2 || report.Malformed != 1 || report.Reasons["bad_rating"] != 1 {
		t.Fatalf("unexpected ratings %+v report %+v", rows, report)
	}
	if rows[0].ISBN != "034545104X" || rows[0].Rating != 0 || rows[1].Rating != 5 {
		t.Errorf("unexpected rows %+v", rows)
	}
}

func TestUnsupportedEncoding(t *testing.T) {
	path := writeFile(t, "r.csv", []byte("a;b\n"))
	if _, _, err := NewCommunityLoader("ebcdic").LoadRatings(path); err == nil {
		t.Error("expected error for unsupported encoding")
	}
	if ValidEncoding("ebcdic") || !ValidEncoding("windows-1252") {
		t.Error("ValidEncoding returned unexpected results")
	}
}

func TestPublicationYear(t *testing.T) {
	tests := []struct {
		in     string
		want   int
		absent bool
	}{
		{in: "9/16/2006", want: 2006},
		{in: "2006-09-16", want: 2006},
		{in: "1998", want: 1998},
		{in: "0", absent: true},
		{in: "", absent: true},
		{in: "unknown", absent: true},
	}

	for _, tt := range tests {
		got := PublicationYear(tt.in)
		if tt.absent {
			if got != nil {
				t.Errorf("PublicationYear(%q) = %d, want nil", tt.in, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("PublicationYear(%q) = %v, want %d", tt.in, got, tt.want)
		}
	}
}
