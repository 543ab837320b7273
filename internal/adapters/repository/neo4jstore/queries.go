package neo4jstore

// Cypher used by the store. Every value is passed as a parameter; domain
// parameters are lower-cased and trimmed by the caller.
const (
	queryDomainContributions = `
MATCH (p:Person)-[:AUTHORED]->(t:Title)-[:BELONGS_TO]->(d:Domain)
WHERE toLower(trim(d.name)) = $domain AND p.name IS NOT NULL
RETURN p.name AS person, count(DISTINCT t) AS titleCount
ORDER BY person`

	queryPersonCollaborations = `
MATCH (p:Person {name: $person})-[r:COLLABORATED_WITH]-(c:Person)
WHERE c.name IS NOT NULL AND c <> p
RETURN elementId(r) AS id, p.name AS person, c.name AS collaborator,
       toInteger(coalesce(r.count, 0)) AS count, coalesce(r.titles, []) AS titles`

	queryDomainExperts = `
MATCH (p:Person)-[r:EXPERT_IN_DIRECT|EXPERT_IN_INDIRECT]->(d:Domain)
WHERE toLower(trim(d.name)) = $domain
RETURN elementId(p) AS personId, p.name AS person, p.Department AS department,
       toInteger(p.expertid) AS expertId, elementId(d) AS domainId, d.name AS domain, type(r) AS kind
ORDER BY kind, person`

	queryDepartmentDirectExperts = `
MATCH (p:Person {Department: $department})
WHERE p.domain IS NOT NULL AND p.name IS NOT NULL
  AND ANY(tag IN p.domain WHERE toLower(trim(tag)) = $domain)
RETURN p.name AS name, toInteger(p.expertid) AS expertId
ORDER BY name`

	queryDepartmentIndirectExperts = `
MATCH (p:Person {Department: $department})-[:EXPERT_IN_INDIRECT]->(d:Domain)
WHERE toLower(trim(d.name)) = $domain AND p.name IS NOT NULL
RETURN DISTINCT p.name AS name, toInteger(p.expertid) AS expertId
ORDER BY name`

	queryDepartmentDomains = `
MATCH (p:Person {Department: $department})-[r:EXPERT_IN_DIRECT|EXPERT_IN_INDIRECT]->(d:Domain)
RETURN elementId(p) AS personId, p.name AS person, p.Department AS department,
       toInteger(p.expertid) AS expertId, elementId(d) AS domainId, d.name AS domain, type(r) AS kind
ORDER BY person, domain`

	queryDomainTitles = `
MATCH (d:Domain) WHERE elementId(d) = $id
OPTIONAL MATCH (t:Title)-[:BELONGS_TO]->(d)
RETURN d.name AS domain, collect(DISTINCT t.name) AS titles`

	queryCollaborationNetwork = `
MATCH (p:Person {name: $person})-[r:COLLABORATED_WITH]-(c:Person)
WHERE c.name IS NOT NULL AND c <> p
RETURN elementId(p) AS personId, p.name AS person, elementId(c) AS collaboratorId, c.name AS collaborator,
       elementId(r) AS id, toInteger(coalesce(r.count, 0)) AS count, coalesce(r.titles, []) AS titles
ORDER BY count DESC, collaborator`

	queryCollaborationTitles = `
MATCH ()-[r:COLLABORATED_WITH]-() WHERE elementId(r) = $id
RETURN coalesce(r.titles, []) AS titles
LIMIT 1`

	queryDepartmentPeople = `
MATCH (p:Person {Department: $department}) WHERE p.name IS NOT NULL
RETURN DISTINCT p.name AS name
ORDER BY name`

	queryDomains = `
MATCH (d:Domain) WHERE d.name IS NOT NULL
RETURN DISTINCT d.name AS domain
ORDER BY domain`

	queryDomainTrends = `
MATCH (d:Domain)
WHERE toLower(trim(d.name)) IN $domains
UNWIND range(0, size(coalesce(d.counts, [])) - 1) AS idx
WITH d, d.years[idx] AS year, d.counts[idx] AS count
WHERE year IS NOT NULL AND count IS NOT NULL
RETURN d.name AS domain, toInteger(year) AS year, toInteger(count) AS count
ORDER BY year`

	queryArticles = `
MATCH (t:Title) WHERE t.name IS NOT NULL
OPTIONAL MATCH (a:Person)-[:AUTHORED]->(t)
OPTIONAL MATCH (t)-[:BELONGS_TO]->(d:Domain)
RETURN elementId(t) AS id, t.name AS title, collect(DISTINCT a.name) AS authors,
       collect(DISTINCT d.name) AS domains, t.keywords AS keywords, t.abstract AS abstract,
       toInteger(t.year) AS year`
)
