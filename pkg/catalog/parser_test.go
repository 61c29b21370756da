package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDump = `
-- Catalog dump
/*!40101 SET NAMES utf8mb4 */;

CREATE TABLE ` + "`cpu`" + ` (
  ` + "`id`" + ` int NOT NULL AUTO_INCREMENT,
  ` + "`name`" + ` varchar(255) NOT NULL,
  ` + "`price`" + ` int DEFAULT NULL,
  ` + "`socket`" + ` varchar(32),
  ` + "`cores`" + ` varchar(8),
  ` + "`tdp`" + ` varchar(8),
  PRIMARY KEY (` + "`id`" + `)
);

# positional inserts rely on the CREATE TABLE column order
INSERT INTO ` + "`cpu`" + ` VALUES
(1,'Ryzen 7 7800X3D',429000,'AM5','8','120'),
(2,'Core i5-14600K',359000,'LGA1700','14','125'),
(3,'Ryzen 5 7600',NULL,'AM5','6','65');

CREATE TABLE ` + "`mainboard`" + ` (
  ` + "`id`" + ` int NOT NULL,
  ` + "`name`" + ` varchar(255),
  ` + "`price`" + ` int,
  ` + "`socket`" + ` varchar(32),
  ` + "`memory_type`" + ` varchar(16),
  ` + "`form_factor`" + ` varchar(16)
);

INSERT INTO mainboard (id, name, price, socket, memory_type, form_factor) VALUES
(10, 'ASUS TUF B650-PLUS, WiFi (rev 2.0)', 219000, 'AM5', 'DDR5', 'ATX');
`

func TestParse_SampleDump(t *testing.T) {
	p := NewParser()
	components, err := p.Parse(strings.NewReader(sampleDump))
	require.NoError(t, err)
	require.Len(t, components, 4)

	cpu := components[0]
	assert.Equal(t, "cpu", cpu.Category)
	assert.Equal(t, "cpu-1", cpu.Id)
	assert.Equal(t, "Ryzen 7 7800X3D", cpu.Name)
	require.NotNil(t, cpu.Price)
	assert.Equal(t, 429000, *cpu.Price)
	assert.Equal(t, "AM5", cpu.Specs["socket"])
	assert.Equal(t, "8", cpu.Specs["cores"])

	// NULL price stays absent, not zero
	assert.Nil(t, components[2].Price)

	mb := components[3]
	assert.Equal(t, "motherboard", mb.Category)
	// value containing the tuple's own separators survives the split
	assert.Equal(t, "ASUS TUF B650-PLUS, WiFi (rev 2.0)", mb.Name)
	assert.Equal(t, "DDR5", mb.Specs["memory_type"])

	stats := p.Stats()
	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 0, stats.RowErrors)
}

func TestParse_MalformedRowIsSkipped(t *testing.T) {
	dump := `
CREATE TABLE cpu (id int, name varchar(255), price int, socket varchar(32));
INSERT INTO cpu VALUES
(1,'Good CPU',100000,'AM5'),
(2,'Broken CPU',200000),
(3,'Another Good CPU',300000,'LGA1700');
`
	p := NewParser()
	components, err := p.Parse(strings.NewReader(dump))
	require.NoError(t, err)

	// the short row loses itself, never the batch
	require.Len(t, components, 2)
	assert.Equal(t, "Good CPU", components[0].Name)
	assert.Equal(t, "Another Good CPU", components[1].Name)
	assert.Equal(t, 1, p.Stats().RowErrors)
}

func TestParse_QuotedValuesWithEscapes(t *testing.T) {
	dump := `
CREATE TABLE gpu (id int, name varchar(255), price int, vram varchar(16));
INSERT INTO gpu VALUES (1, 'MSI \'Gaming X\' RTX 4070', 589000, '12GB'),
(2, 'Zotac ''Twin Edge'' RTX 4060', 319000, '8GB');
`
	p := NewParser()
	components, err := p.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, `MSI 'Gaming X' RTX 4070`, components[0].Name)
	assert.Equal(t, `Zotac 'Twin Edge' RTX 4060`, components[1].Name)
}

func TestParse_CommentSyntaxInsideLiteralIsData(t *testing.T) {
	dump := `
CREATE TABLE ssd (id int, name varchar(255), price int);
INSERT INTO ssd VALUES (1, 'WD Blue -- SN580 /* NVMe */', 89000);
`
	p := NewParser()
	components, err := p.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "WD Blue -- SN580 /* NVMe */", components[0].Name)
}

func TestParse_EmptyInputFails(t *testing.T) {
	p := NewParser()
	_, err := p.Parse(strings.NewReader("-- nothing here\n"))
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestParse_PositionalInsertWithoutSchemaIsSkipped(t *testing.T) {
	dump := `
INSERT INTO mystery VALUES (1, 'thing', 100);
CREATE TABLE cpu (id int, name varchar(64), price int);
INSERT INTO cpu VALUES (1, 'Known CPU', 50000);
`
	p := NewParser()
	components, err := p.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Equal(t, "Known CPU", components[0].Name)
	assert.Equal(t, 1, p.Stats().RowErrors)
}

func TestParse_NegativePriceBecomesUnknown(t *testing.T) {
	dump := `
CREATE TABLE hdd (id int, name varchar(64), price int);
INSERT INTO hdd VALUES (1, 'Refund Drive', -5000);
`
	p := NewParser()
	components, err := p.Parse(strings.NewReader(dump))
	require.NoError(t, err)
	require.Len(t, components, 1)
	assert.Nil(t, components[0].Price)
}
