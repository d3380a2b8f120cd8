package mysql

const createDraftsSQL = `
CREATE TABLE IF NOT EXISTS quotation_drafts (
  draft_key  VARCHAR(255)  NOT NULL,
  body       LONGBLOB      NOT NULL,
  updated_at TIMESTAMP(3)  NOT NULL DEFAULT CURRENT_TIMESTAMP(3) ON UPDATE CURRENT_TIMESTAMP(3),
  PRIMARY KEY (draft_key)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

const getDraftSQL = `SELECT body FROM quotation_drafts WHERE draft_key = ?`

// Use VALUES(col) for broad compatibility.
const upsertDraftSQL = `
INSERT INTO quotation_drafts (draft_key, body)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  body       = VALUES(body),
  updated_at = CURRENT_TIMESTAMP(3)
`

const deleteDraftSQL = `DELETE FROM quotation_drafts WHERE draft_key = ?`

// LIKE wildcards in the prefix are escaped by likePrefix.
const listDraftKeysSQL = `
SELECT draft_key FROM quotation_drafts
WHERE draft_key LIKE ? ESCAPE '\\'
ORDER BY draft_key
`
