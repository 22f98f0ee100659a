package store

// Tables lists the relational tables in creation order
var Tables = []string{"books", "community_ratings", "users", "demographic_ratings"}

const schema = `
CREATE TABLE books (
	book_key            TEXT PRIMARY KEY,
	isbn                TEXT,
	isbn10              TEXT,
	isbn13              TEXT,
	title               TEXT NOT NULL,
	authors             TEXT,
	publisher_raw       TEXT,
	publisher           TEXT NOT NULL,
	is_uk_publisher     INTEGER NOT NULL DEFAULT 0,
	publication_date    TEXT,
	publication_year    INTEGER,
	page_count          REAL,
	language            TEXT,
	source_rating       REAL NOT NULL,
	source_review_count INTEGER NOT NULL
);

CREATE TABLE community_ratings (
	isbn            TEXT PRIMARY KEY,
	rating_count    INTEGER NOT NULL,
	mean_rating     REAL NOT NULL,
	std_rating      REAL,
	median_rating   REAL NOT NULL,
	rescaled_rating REAL NOT NULL
);

CREATE TABLE users (
	user_id   INTEGER PRIMARY KEY,
	location  TEXT,
	age       REAL,
	age_group TEXT NOT NULL,
	country   TEXT NOT NULL,
	is_uk     INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE demographic_ratings (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	isbn         TEXT NOT NULL,
	age_group    TEXT NOT NULL,
	mean_rating  REAL NOT NULL,
	rating_count INTEGER NOT NULL
);

CREATE INDEX idx_books_isbn ON books(isbn);
CREATE INDEX idx_books_publisher ON books(publisher);
CREATE INDEX idx_books_uk ON books(is_uk_publisher);
CREATE INDEX idx_users_country ON users(country);
CREATE INDEX idx_demographic_isbn ON demographic_ratings(isbn);
CREATE INDEX idx_demographic_age_group ON demographic_ratings(age_group);
`
